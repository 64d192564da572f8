// Package money keeps dollar amounts on whole cents. Values are float64 at rest;
// arithmetic that feeds comparisons goes through decimal so repeated additions
// do not drift.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance, in currency units, for cap and threshold checks.
const Epsilon = 0.01

var epsilon = decimal.NewFromFloat(Epsilon)

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Round rounds to cents. Non-finite values are returned as is.
func Round(v float64) float64 {
	if !finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Add returns a+b rounded to cents.
func Add(a, b float64) float64 {
	if !finite(a, b) {
		return a + b
	}
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// Gap returns target-value computed exactly.
func Gap(target, value float64) float64 {
	if !finite(target, value) {
		return target - value
	}
	return decimal.NewFromFloat(target).Sub(decimal.NewFromFloat(value)).InexactFloat64()
}

// Reached reports whether value is within Epsilon of target or beyond it.
// A gap of exactly one cent is not reached.
func Reached(value, target float64) bool {
	if !finite(target, value) {
		return value >= target
	}
	gap := decimal.NewFromFloat(target).Sub(decimal.NewFromFloat(value))
	return gap.LessThan(epsilon)
}

// Sum adds amounts exactly and rounds once.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		if !finite(a) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}
