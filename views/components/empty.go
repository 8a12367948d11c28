package components

import "fmt"

func emptyMessage(query string) string {
	if query == "" {
		return "No notes yet. Write or dictate one above."
	}
	return fmt.Sprintf("No notes match %q.", query)
}
