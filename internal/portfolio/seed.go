package portfolio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PredefinedCategory 是每个学生初始拥有的分类目录中的一项。
type PredefinedCategory struct {
	Name      string
	SortOrder int
}

var predefinedCategories = []PredefinedCategory{
	{Name: "Matematika", SortOrder: 1},
	{Name: "Čeština", SortOrder: 2},
	{Name: "Angličtina", SortOrder: 3},
	{Name: "Přírodověda", SortOrder: 4},
	{Name: "Dějepis", SortOrder: 5},
	{Name: "Zeměpis", SortOrder: 6},
	{Name: "Umění", SortOrder: 7},
	{Name: "Hudba", SortOrder: 8},
	{Name: "Tělesná výchova", SortOrder: 9},
	{Name: "Projekty", SortOrder: 10},
	{Name: "Výlety a události", SortOrder: 11},
	{Name: "Ostatní", SortOrder: 12},
}

func PredefinedCategories() []PredefinedCategory {
	out := make([]PredefinedCategory, len(predefinedCategories))
	copy(out, predefinedCategories)
	return out
}

// SeedPredefinedCategories 为学生补齐缺失的预置分类，返回新建数量。
// 在单个事务内执行：任何失败都不会留下部分分类，错误包装 ErrSeed。
func (s *Service) SeedPredefinedCategories(ctx context.Context, studentID uuid.UUID) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created int
	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetStudent(ctx, studentID); err != nil {
			return err
		}
		var err error
		created, err = seedCategories(ctx, tx, studentID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func seedCategories(ctx context.Context, tx Store, studentID uuid.UUID) (int, error) {
	existing, err := tx.ListCategories(ctx, studentID)
	if err != nil {
		return 0, fmt.Errorf("%w: list categories: %w", ErrSeed, err)
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		if c.IsPredefined {
			have[c.Name] = true
		}
	}
	created := 0
	for _, pc := range predefinedCategories {
		if have[pc.Name] {
			continue
		}
		c := &Category{
			Model:        Model{ID: uuid.New()},
			StudentID:    studentID,
			Name:         pc.Name,
			IsPredefined: true,
			SortOrder:    pc.SortOrder,
		}
		if err := Validate(c); err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrSeed, pc.Name, err)
		}
		if err := tx.CreateCategory(ctx, c); err != nil {
			return 0, fmt.Errorf("%w: create %s: %w", ErrSeed, pc.Name, err)
		}
		created++
	}
	return created, nil
}
