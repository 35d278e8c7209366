package store

import (
	"context"
	"fmt"

	"planner-cli/internal/model"
)

// Entries returns the ranked members of scope as working-copy entries.
func (s *Store) Entries(ctx context.Context, scope model.Scope) ([]model.Entry, error) {
	switch scope.Kind {
	case model.ScopeItems:
		items, err := s.ListItems(ctx, model.ID(scope.ID), ListOptions{})
		if err != nil {
			return nil, err
		}
		out := make([]model.Entry, 0, len(items))
		for _, it := range items {
			out = append(out, model.ItemEntry(it))
		}
		return out, nil
	case model.ScopeColumn:
		cs, err := s.ListContainers(ctx, int(scope.ID), ListOptions{})
		if err != nil {
			return nil, err
		}
		out := make([]model.Entry, 0, len(cs))
		for _, c := range cs {
			out = append(out, model.ContainerEntry(c))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("entries: unknown scope kind %q", scope.Kind)
	}
}
