// Package category holds the fixed list of transaction categories and their
// income/expense classification.
package category

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// UnknownIcon is shown for categories no longer in the registry.
const UnknownIcon = "❓"

var ErrNotFound = errors.New("category not found")

type Category struct {
	Name string
	Kind Kind
	Icon string
}

// Registry is immutable once built.
type Registry struct {
	entries []Category
	byName  map[string]int
}

var builtin = []Category{
	{Name: "Salary", Kind: KindIncome, Icon: "💼"},
	{Name: "Freelance", Kind: KindIncome, Icon: "🧑‍💻"},
	{Name: "Investments", Kind: KindIncome, Icon: "📈"},
	{Name: "Gifts", Kind: KindIncome, Icon: "🎁"},
	{Name: "Groceries", Kind: KindExpense, Icon: "🛒"},
	{Name: "Rent", Kind: KindExpense, Icon: "🏠"},
	{Name: "Utilities", Kind: KindExpense, Icon: "💡"},
	{Name: "Transport", Kind: KindExpense, Icon: "🚌"},
	{Name: "Dining", Kind: KindExpense, Icon: "🍽️"},
	{Name: "Entertainment", Kind: KindExpense, Icon: "🎬"},
	{Name: "Health", Kind: KindExpense, Icon: "🩺"},
	{Name: "Shopping", Kind: KindExpense, Icon: "🛍️"},
	{Name: "Other", Kind: KindExpense, Icon: "📦"},
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := New(builtin)
	if err != nil {
		panic(err)
	}
	return r
}

// New builds a registry, rejecting blank or duplicate names and unknown kinds.
func New(entries []Category) (*Registry, error) {
	r := &Registry{
		entries: make([]Category, 0, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	hasExpense := false
	for _, c := range entries {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, errors.New("category name cannot be empty")
		}
		if _, dup := r.byName[name]; dup {
			return nil, errors.New("duplicate category name: " + name)
		}
		if c.Kind != KindIncome && c.Kind != KindExpense {
			return nil, errors.New("invalid kind for category " + name)
		}
		if c.Kind == KindExpense {
			hasExpense = true
		}
		c.Name = name
		r.byName[name] = len(r.entries)
		r.entries = append(r.entries, c)
	}
	if !hasExpense {
		return nil, errors.New("registry needs at least one expense category")
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (Category, error) {
	i, ok := r.byName[name]
	if !ok {
		return Category{}, ErrNotFound
	}
	return r.entries[i], nil
}

// Classify falls back to KindExpense so an orphaned category never breaks
// reporting.
func (r *Registry) Classify(name string) Kind {
	c, err := r.Lookup(name)
	if err != nil {
		return KindExpense
	}
	return c.Kind
}

func (r *Registry) Icon(name string) string {
	c, err := r.Lookup(name)
	if err != nil {
		return UnknownIcon
	}
	return c.Icon
}

func (r *Registry) All() []Category {
	out := make([]Category, len(r.entries))
	copy(out, r.entries)
	return out
}

// DefaultSelection is the first expense entry.
func (r *Registry) DefaultSelection() Category {
	for _, c := range r.entries {
		if c.Kind == KindExpense {
			return c
		}
	}
	return Category{}
}
