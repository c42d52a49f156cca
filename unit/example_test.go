package unit_test

import (
	"fmt"

	"github.com/nscipp/nscipp/unit"
)

func ExampleUnit_Div() {
	speed := unit.Meter.Div(unit.Second)
	accel := speed.Div(unit.Second)
	fmt.Println(accel)
	// Output:
	// m s^-2
}

func ExampleUnit_Mul() {
	counts := unit.Counts
	fmt.Println(counts.Mul(unit.Dimensionless))
	// Output:
	// counts
}

func ExampleCheckEqual() {
	err := unit.CheckEqual("add", unit.Meter, unit.Second)
	fmt.Println(err)
	// Output:
	// nscipp: add: incompatible units: want m, got s
}
