package postgres

import (
	"fmt"
	"strings"
)

// placeholder returns a numbered placeholder for PostgreSQL (uses $N).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n numbered placeholders for PostgreSQL.
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
