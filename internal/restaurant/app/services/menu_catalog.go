package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/restaurant/domain/models"
	"moms-kitchen/internal/xpkg/logger"
)

const (
	DietAll    = "All"
	DietVeg    = "Veg"
	DietNonVeg = "Non-Veg"

	CategoryAll = "All"
)

// MenuFilter selects menu items for the settings and portal views. Zero values
// match everything.
type MenuFilter struct {
	Category string
	Diet     string
	Search   string
}

// MenuCatalog mirrors the menu_items table. Any change on the table reloads the
// whole catalog.
type MenuCatalog struct {
	repo      core.IMenuRepo
	publisher core.IPublisher
	timeout   time.Duration
	mylog     logger.Logger

	mu      sync.RWMutex
	items   []models.MenuItem
	gen     uint64
	applied uint64

	watchers *broadcaster
}

func NewMenuCatalog(repo core.IMenuRepo, publisher core.IPublisher, timeout time.Duration, mylog logger.Logger) *MenuCatalog {
	return &MenuCatalog{
		repo:      repo,
		publisher: publisher,
		timeout:   timeout,
		mylog:     mylog,
		watchers:  newBroadcaster(),
	}
}

// Load replaces the cached catalog with the store's. On error the previous set
// is kept. A load that started before an already applied one is discarded.
func (mc *MenuCatalog) Load(ctx context.Context) error {
	log := mc.mylog.Action("menu_load")

	mc.mu.Lock()
	mc.gen++
	gen := mc.gen
	mc.mu.Unlock()

	ctx, cancel := withTimeout(ctx, mc.timeout)
	defer cancel()

	items, err := mc.repo.List(ctx)
	if err != nil {
		log.Error("Failed to load menu", err)
		return fmt.Errorf("load menu: %w", err)
	}

	mc.mu.Lock()
	if gen <= mc.applied {
		mc.mu.Unlock()
		log.Debug("discarding stale menu load", "generation", gen)
		return nil
	}
	mc.applied = gen
	mc.items = items
	mc.mu.Unlock()

	mc.watchers.signal()
	log.Debug("menu loaded", "items", len(items))
	return nil
}

func (mc *MenuCatalog) Add(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	log := mc.mylog.Action("menu_add")
	if err := ValidateMenuItem(item); err != nil {
		return models.MenuItem{}, err
	}

	ctx, cancel := withTimeout(ctx, mc.timeout)
	defer cancel()

	created, err := mc.repo.Insert(ctx, item)
	if err != nil {
		log.Error("Failed to add menu item", err, "name", item.Name)
		return models.MenuItem{}, fmt.Errorf("add menu item: %w", err)
	}
	announce(ctx, mc.publisher, mc.mylog, core.MenuTable, dto.EventInsert, map[string]any{"id": created.ID})
	log.Info("menu item added", "id", created.ID, "name", created.Name)
	return created, nil
}

func (mc *MenuCatalog) Update(ctx context.Context, item models.MenuItem) error {
	log := mc.mylog.Action("menu_update")
	if item.ID == "" {
		return fmt.Errorf("id: %w", core.ErrFieldIsEmpty)
	}
	if err := ValidateMenuItem(item); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, mc.timeout)
	defer cancel()

	if err := mc.repo.Update(ctx, item); err != nil {
		log.Error("Failed to update menu item", err, "id", item.ID)
		return fmt.Errorf("update menu item: %w", err)
	}
	announce(ctx, mc.publisher, mc.mylog, core.MenuTable, dto.EventUpdate, map[string]any{"id": item.ID})
	log.Info("menu item updated", "id", item.ID)
	return nil
}

func (mc *MenuCatalog) Remove(ctx context.Context, id string) error {
	log := mc.mylog.Action("menu_remove")
	if id == "" {
		return fmt.Errorf("id: %w", core.ErrFieldIsEmpty)
	}

	ctx, cancel := withTimeout(ctx, mc.timeout)
	defer cancel()

	if err := mc.repo.Delete(ctx, id); err != nil {
		log.Error("Failed to remove menu item", err, "id", id)
		return fmt.Errorf("remove menu item: %w", err)
	}
	announce(ctx, mc.publisher, mc.mylog, core.MenuTable, dto.EventDelete, map[string]any{"id": id})
	log.Info("menu item removed", "id", id)
	return nil
}

// SeedDefaults bulk-inserts items into an empty catalog. The local set is left
// alone; the change feed brings the new rows in.
func (mc *MenuCatalog) SeedDefaults(ctx context.Context, items []models.MenuItem) error {
	log := mc.mylog.Action("menu_seed")

	ctx, cancel := withTimeout(ctx, mc.timeout)
	defer cancel()

	n, err := mc.repo.Count(ctx)
	if err != nil {
		log.Error("Failed to count menu items", err)
		return fmt.Errorf("seed menu: %w", err)
	}
	if n > 0 {
		log.Warn("menu is not empty, seed skipped", "items", n)
		return core.ErrCatalogNotEmpty
	}

	if err := mc.repo.InsertMany(ctx, items); err != nil {
		log.Error("Failed to seed menu", err)
		return fmt.Errorf("seed menu: %w", err)
	}
	announce(ctx, mc.publisher, mc.mylog, core.MenuTable, dto.EventInsert, nil)
	log.Info("menu seeded", "items", len(items))
	return nil
}

// HandleEvent reloads the catalog on any change.
func (mc *MenuCatalog) HandleEvent(ctx context.Context, ev dto.ChangeEvent) error {
	mc.mylog.Action("menu_change_received").Debug("menu changed", "type", string(ev.Type))
	return mc.Load(ctx)
}

// Items returns the catalog in cache order (newest first).
func (mc *MenuCatalog) Items() []models.MenuItem {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	out := make([]models.MenuItem, len(mc.items))
	copy(out, mc.items)
	return out
}

// ByName returns the catalog sorted by name for the customer portal.
func (mc *MenuCatalog) ByName() []models.MenuItem {
	items := mc.Items()
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items
}

// Categories lists the distinct categories in first-seen order.
func (mc *MenuCatalog) Categories() []string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, item := range mc.items {
		if !seen[item.Category] {
			seen[item.Category] = true
			out = append(out, item.Category)
		}
	}
	return out
}

func (mc *MenuCatalog) Filter(f MenuFilter) []models.MenuItem {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var out []models.MenuItem
	for _, item := range mc.Items() {
		if f.Category != "" && f.Category != CategoryAll && item.Category != f.Category {
			continue
		}
		switch f.Diet {
		case DietVeg:
			if !item.IsVeg {
				continue
			}
		case DietNonVeg:
			if item.IsVeg {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Watch ticks after every applied load until ctx is done.
func (mc *MenuCatalog) Watch(ctx context.Context) <-chan struct{} {
	return mc.watchers.watch(ctx)
}

func ValidateMenuItem(item models.MenuItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("name: %w", core.ErrFieldIsEmpty)
	}
	if strings.TrimSpace(item.Category) == "" {
		return fmt.Errorf("category: %w", core.ErrFieldIsEmpty)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("%s: %w", item.Name, core.ErrNegativePrice)
	}
	return nil
}

// IsValidation reports whether err was raised before reaching the store.
func IsValidation(err error) bool {
	for _, target := range []error{
		core.ErrFieldIsEmpty,
		core.ErrEmptyCart,
		core.ErrInvalidQty,
		core.ErrNegativePrice,
		core.ErrBadPayment,
		core.ErrBadStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
