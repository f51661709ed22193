package runner

import (
	"regexp"
	"strings"
)

// Task is one unit of work: a product identifier and the live price to print
// on its card.
type Task struct {
	SKU   string
	Price string
}

const fallbackPrice = "9.9"

// pricePattern matches a per-line price suffix. A price needs a decimal
// point; a bare digit run after a comma is read as another identifier.
var pricePattern = regexp.MustCompile(`^\d+\.\d+$`)

// ParseTasks turns free-text bulk input into tasks. Identifiers split on
// newlines, commas (full-width included) and whitespace; a `sku,price` pair
// on one line binds that price to that identifier. Remaining tasks take the
// i-th entry of the positional price list, the original's rule: the last
// entry is reused when the list runs short, and the run-wide default covers
// an empty list.
func ParseTasks(skusInput, pricesInput, defaultPrice string) []Task {
	if defaultPrice == "" {
		defaultPrice = fallbackPrice
	}
	prices := splitList(pricesInput)

	var tasks []Task
	for _, line := range strings.Split(skusInput, "\n") {
		line = strings.ReplaceAll(line, "，", ",")
		fields := strings.Split(line, ",")
		for i := 0; i < len(fields); i++ {
			tok := strings.TrimSpace(fields[i])
			if tok == "" {
				continue
			}
			subs := strings.Fields(tok)
			if len(subs) > 1 {
				for _, s := range subs {
					tasks = append(tasks, Task{SKU: s})
				}
				continue
			}
			if i+1 < len(fields) {
				if next := strings.TrimSpace(fields[i+1]); pricePattern.MatchString(next) {
					tasks = append(tasks, Task{SKU: tok, Price: next})
					i++
					continue
				}
			}
			tasks = append(tasks, Task{SKU: tok})
		}
	}

	for i := range tasks {
		if tasks[i].Price != "" {
			continue
		}
		switch {
		case i < len(prices):
			tasks[i].Price = prices[i]
		case len(prices) > 0:
			tasks[i].Price = prices[len(prices)-1]
		default:
			tasks[i].Price = defaultPrice
		}
	}
	return tasks
}

func splitList(input string) []string {
	input = strings.ReplaceAll(input, "，", ",")
	input = strings.ReplaceAll(input, "\n", ",")
	var out []string
	for _, f := range strings.Split(input, ",") {
		for _, s := range strings.Fields(f) {
			out = append(out, s)
		}
	}
	return out
}
