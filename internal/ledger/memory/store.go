// Package memory is an in-process ledger.Store. It backs unit tests and the
// "memory" data backend; all operations are guarded by one mutex, which is
// plenty at personal-ledger scale.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sobres/internal/core"
	"sobres/internal/ledger"
)

type Store struct {
	mu sync.Mutex

	nextID int64

	accounts    map[int64]core.Account
	groups      map[int64]core.CategoryGroup
	categories  map[int64]core.Category
	payees      map[int64]core.Payee
	rules       map[int64]core.PayeeMatch
	assignments map[assignmentKey]core.Money
	txs         map[int64]core.Transaction
}

type assignmentKey struct {
	categoryID int64
	month      string // ISO first-of-month
}

func NewStore() *Store {
	return &Store{
		accounts:    make(map[int64]core.Account),
		groups:      make(map[int64]core.CategoryGroup),
		categories:  make(map[int64]core.Category),
		payees:      make(map[int64]core.Payee),
		rules:       make(map[int64]core.PayeeMatch),
		assignments: make(map[assignmentKey]core.Money),
		txs:         make(map[int64]core.Transaction),
	}
}

var _ ledger.Store = (*Store)(nil)

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// --- accounts ---

func (s *Store) CreateAccount(_ context.Context, a *core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	s.accounts[a.ID] = *a
	return nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetPaymentCategory(_ context.Context, accountID, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return core.ErrNotFound
	}
	a.PaymentCategoryID = categoryID
	s.accounts[accountID] = a
	return nil
}

// --- category groups and categories ---

func (s *Store) CreateGroup(_ context.Context, g *core.CategoryGroup) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.id()
	s.groups[g.ID] = *g
	return nil
}

func (s *Store) GroupByName(_ context.Context, name string) (core.CategoryGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.Name == name {
			return g, nil
		}
	}
	return core.CategoryGroup{}, core.ErrNotFound
}

func (s *Store) ActiveGroups(_ context.Context) ([]core.CategoryGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CategoryGroup
	for _, g := range s.groups {
		if g.IsActive {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c *core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[c.GroupID]; !ok {
		return core.ErrNotFound
	}
	if c.Kind == "" {
		c.Kind = core.CategoryRegular
	}
	if c.GoalType == "" {
		c.GoalType = core.GoalNone
	}
	c.ID = s.id()
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) ActiveByGroup(_ context.Context, groupID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.GroupID == groupID && c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- payees ---

func (s *Store) CreatePayee(_ context.Context, p *core.Payee) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	s.payees[p.ID] = *p
	return nil
}

func (s *Store) GetPayee(_ context.Context, id int64) (core.Payee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payees[id]
	if !ok {
		return core.Payee{}, core.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPayees(_ context.Context) ([]core.Payee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Payee, 0, len(s.payees))
	for _, p := range s.payees {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateRule(_ context.Context, m *core.PayeeMatch) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payees[m.PayeeID]; !ok {
		return core.ErrNotFound
	}
	m.ID = s.id()
	s.rules[m.ID] = *m
	return nil
}

func (s *Store) ListRules(_ context.Context) ([]core.PayeeMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PayeeMatch, 0, len(s.rules))
	for _, m := range s.rules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- assignments ---

func (s *Store) UpsertAssignment(_ context.Context, categoryID int64, month time.Time, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[categoryID]; !ok {
		return core.ErrNotFound
	}
	s.assignments[assignmentKey{categoryID, monthKey(month)}] = amount
	return nil
}

func (s *Store) AssignedInMonth(_ context.Context, categoryID int64, month time.Time) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignments[assignmentKey{categoryID, monthKey(month)}], nil
}

func (s *Store) AssignedThrough(_ context.Context, categoryID int64, month time.Time) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bound := monthKey(month)
	var sum core.Money
	for k, v := range s.assignments {
		if k.categoryID == categoryID && k.month <= bound {
			sum += v
		}
	}
	return sum, nil
}

func (s *Store) AssignedAllTime(_ context.Context) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum core.Money
	for _, v := range s.assignments {
		sum += v
	}
	return sum, nil
}

func monthKey(t time.Time) string {
	return core.MonthStart(t).Format(core.DateLayout)
}

// --- transactions ---

func (s *Store) CreateTransaction(_ context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(t)
}

func (s *Store) createLocked(t *core.Transaction) error {
	if _, ok := s.accounts[t.AccountID]; !ok {
		return core.ErrNotFound
	}
	t.ID = s.id()
	t.Date = core.Day(t.Date)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.txs[t.ID] = *t
	return nil
}

func (s *Store) CreateTransferPair(_ context.Context, out, in *core.Transaction) error {
	if err := out.Validate(); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.createLocked(out); err != nil {
		return err
	}
	if err := s.createLocked(in); err != nil {
		delete(s.txs, out.ID)
		return err
	}
	out.TransferID = in.ID
	in.TransferID = out.ID
	s.txs[out.ID] = *out
	s.txs[in.ID] = *in
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txs {
		if f.AccountID != 0 && t.AccountID != f.AccountID {
			continue
		}
		if f.CategoryID != 0 && t.CategoryID != f.CategoryID {
			continue
		}
		if f.Uncategorized && t.CategoryID != 0 {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) FindByImportID(_ context.Context, importID string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ImportID != "" && t.ImportID == importID {
			return t, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (s *Store) FindByContent(_ context.Context, accountID int64, date time.Time, amount core.Money) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := core.Day(date)
	var out []core.Transaction
	for _, t := range s.txs {
		if t.AccountID == accountID && t.Amount == amount && t.Date.Equal(day) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetImportID(_ context.Context, id int64, importID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.ErrNotFound
	}
	t.ImportID = importID
	s.txs[id] = t
	return nil
}

func (s *Store) SetTransactionCategory(_ context.Context, id, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.ErrNotFound
	}
	if categoryID != 0 {
		if _, ok := s.categories[categoryID]; !ok {
			return core.ErrNotFound
		}
	}
	t.CategoryID = categoryID
	s.txs[id] = t
	return nil
}

func (s *Store) LinkPair(_ context.Context, idA, idB int64, clearCategories bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.txs[idA]
	if !ok {
		return core.ErrNotFound
	}
	b, ok := s.txs[idB]
	if !ok {
		return core.ErrNotFound
	}
	a.TransferID = b.ID
	b.TransferID = a.ID
	if clearCategories {
		a.CategoryID = 0
		b.CategoryID = 0
	}
	s.txs[a.ID] = a
	s.txs[b.ID] = b
	return nil
}

func (s *Store) UnlinkPair(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.ErrNotFound
	}
	if t.TransferID == 0 {
		return nil
	}
	if partner, ok := s.txs[t.TransferID]; ok {
		partner.TransferID = 0
		s.txs[partner.ID] = partner
	}
	t.TransferID = 0
	s.txs[id] = t
	return nil
}

func (s *Store) SumByAccount(_ context.Context, accountID int64) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum core.Money
	for _, t := range s.txs {
		if t.AccountID == accountID {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (s *Store) SumLiquidOnBudget(_ context.Context) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum core.Money
	for _, t := range s.txs {
		acc, ok := s.accounts[t.AccountID]
		if ok && acc.Liquid() && !acc.OffBudget {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (s *Store) CardSpendingThrough(_ context.Context, before time.Time) (map[int64]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]core.Money)
	for _, t := range s.txs {
		acc, ok := s.accounts[t.AccountID]
		if !ok || acc.Type != core.AccountCreditCard {
			continue
		}
		if !t.Date.Before(before) || t.IsTransfer() || t.CategoryID == 0 {
			continue
		}
		out[t.AccountID] += t.Amount
	}
	for id, v := range out {
		out[id] = v.Abs()
	}
	return out, nil
}

func (s *Store) CardPaymentsThrough(_ context.Context, before time.Time) (map[int64]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]core.Money)
	for _, t := range s.txs {
		acc, ok := s.accounts[t.AccountID]
		if !ok || acc.Type != core.AccountCreditCard {
			continue
		}
		if !t.Date.Before(before) || !t.IsTransfer() || t.Amount <= 0 {
			continue
		}
		out[t.AccountID] += t.Amount
	}
	return out, nil
}

func (s *Store) CardPaymentsBetween(_ context.Context, accountID int64, from, before time.Time) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum core.Money
	for _, t := range s.txs {
		if t.AccountID != accountID || !t.IsTransfer() || t.Amount <= 0 || t.CategoryID != 0 {
			continue
		}
		if t.Date.Before(from) || !t.Date.Before(before) {
			continue
		}
		sum += t.Amount
	}
	return sum, nil
}

func (s *Store) CategoryActivity(_ context.Context, categoryID int64, from, before time.Time) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum core.Money
	for _, t := range s.txs {
		if t.CategoryID != categoryID {
			continue
		}
		if !from.IsZero() && t.Date.Before(from) {
			continue
		}
		if !t.Date.Before(before) {
			continue
		}
		if t.IsTransfer() && !s.partnerOffBudgetLocked(t) {
			continue
		}
		sum += t.Amount
	}
	return sum, nil
}

// partnerOffBudgetLocked reports whether the other leg of a linked transfer
// sits on an off-budget account. Such legs count as real budget activity.
func (s *Store) partnerOffBudgetLocked(t core.Transaction) bool {
	partner, ok := s.txs[t.TransferID]
	if !ok {
		return false
	}
	acc, ok := s.accounts[partner.AccountID]
	return ok && acc.OffBudget
}

// SeedDefaults loads a minimal taxonomy so a fresh memory backend is usable.
func (s *Store) SeedDefaults(ctx context.Context) error {
	for _, name := range []string{"Gastos Fijos", "Vida Diaria"} {
		g := core.CategoryGroup{Name: name, IsActive: true}
		if err := s.CreateGroup(ctx, &g); err != nil {
			return err
		}
		for _, cat := range defaultCategories[name] {
			c := core.Category{Name: cat, GroupID: g.ID, IsActive: true, Kind: core.CategoryRegular, GoalType: core.GoalNone}
			if err := s.CreateCategory(ctx, &c); err != nil {
				return err
			}
		}
	}
	return nil
}

var defaultCategories = map[string][]string{
	"Gastos Fijos": {"Arriendo", "Cuentas"},
	"Vida Diaria":  {"Supermercado", "Restaurantes", "Transporte"},
}
