package order

import (
	"fmt"
	"math/rand"
	"time"
)

// MaxCodeAttempts bounds how many candidates PlaceOrder tries per order.
const MaxCodeAttempts = 10

const codeDateLayout = "020106"

// CodeGenerator produces order codes shaped as one digit 1-9, three random
// digits and the ddmmyy of the order day.
type CodeGenerator struct {
	intN func(n int) int
	now  func() time.Time
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{intN: rand.Intn, now: time.Now}
}

// NewCodeGeneratorWith lets callers pin the random source and the clock.
func NewCodeGeneratorWith(intN func(n int) int, now func() time.Time) *CodeGenerator {
	return &CodeGenerator{intN: intN, now: now}
}

func (g *CodeGenerator) Next() string {
	return fmt.Sprintf("%d%03d%s", 1+g.intN(9), g.intN(1000), g.now().Format(codeDateLayout))
}
