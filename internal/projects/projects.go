// Package projects implements the project fund lifecycle: budget tracking,
// monotonically growing spend, and the two-band excess tax computed on
// completion.
package projects

import (
	"fmt"
	"log/slog"

	"github.com/jothamO/prism-admin/internal/models"
)

// Completion is the result of completing a project. Excess can be negative
// (over budget), in which case no tax arises.
type Completion struct {
	Name   string `json:"name"`
	Budget int64  `json:"budget"`
	Spent  int64  `json:"spent"`
	Excess int64  `json:"excess"`
	Tax    int64  `json:"tax"`
}

// Start creates a project fund and attaches it to the session. Sessions hold
// at most one active project, so a second Start fails with ErrProjectExists
// until the first is completed.
func Start(s *models.Session, name string, budget int64, source string) (*models.Project, error) {
	if s.ActiveProject != nil {
		return nil, models.ErrProjectExists
	}
	p, err := New(name, budget, source)
	if err != nil {
		return nil, err
	}
	s.ActiveProject = p
	return p, nil
}

// New validates and creates a project fund.
func New(name string, budget int64, source string) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}
	if budget <= 0 {
		return nil, fmt.Errorf("project budget must be positive, got %d", budget)
	}
	slog.Debug("projects.New: project created", "name", name, "budget", budget, "source", source)
	return &models.Project{Name: name, Budget: budget, Source: source}, nil
}

// AddExpense records one expense against the project. Spent only ever grows;
// spending past the budget is allowed and simply drives the balance negative.
func AddExpense(p *models.Project, amount int64) error {
	if p == nil {
		return models.ErrNoActiveProject
	}
	if amount <= 0 {
		return fmt.Errorf("expense amount must be positive, got %d", amount)
	}
	p.Spent += amount
	slog.Debug("projects.AddExpense: expense recorded", "name", p.Name, "amount", amount, "spent", p.Spent)
	return nil
}

// Complete computes the excess and its tax. The first ExcessFreeBand naira of
// a positive excess is tax-free; the remainder is taxed at ExcessRate. The
// caller clears the session's active project unconditionally afterwards —
// completion is never blocked by tax liability.
func Complete(p *models.Project, policy models.Policy) (*Completion, error) {
	if p == nil {
		return nil, models.ErrNoActiveProject
	}
	excess := p.Budget - p.Spent
	result := &Completion{
		Name:   p.Name,
		Budget: p.Budget,
		Spent:  p.Spent,
		Excess: excess,
	}
	if excess > policy.ExcessFreeBand {
		result.Tax = int64(float64(excess-policy.ExcessFreeBand) * policy.ExcessRate)
	}
	slog.Info("projects.Complete: project completed", "name", p.Name, "excess", excess, "tax", result.Tax)
	return result, nil
}
