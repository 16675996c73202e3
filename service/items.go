package service

import (
	"bitwise74/campus-finder/model"
	"bitwise74/campus-finder/security"
	"bitwise74/campus-finder/store"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ObjectStore is where item images end up
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ItemInput is an already validated item report
type ItemInput struct {
	Title       string
	Description string
	Category    string
	Type        string
	Location    string
	Date        time.Time
	ContactInfo string
	Image       string
}

// ItemPatch holds the fields a PUT or PATCH asked to change. The owner and
// the ID can't be changed
type ItemPatch struct {
	Title       *string
	Description *string
	Category    *string
	Type        *string
	Location    *string
	Date        *time.Time
	ContactInfo *string
	Status      *string
	Image       *string
}

type Items struct {
	items   store.ItemStore
	users   store.UserStore
	objects ObjectStore
}

// NewItems creates the item service. objects may be nil when image uploads
// are disabled
func NewItems(items store.ItemStore, users store.UserStore, objects ObjectStore) *Items {
	return &Items{items: items, users: users, objects: objects}
}

func (s *Items) UploadsEnabled() bool {
	return s.objects != nil
}

func (s *Items) Create(ctx context.Context, ownerID string, in ItemInput) (*model.Item, error) {
	owner, err := s.users.UserByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find owner: %w", err)
	}

	id, err := security.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate item id: %w", err)
	}

	contact := strings.TrimSpace(in.ContactInfo)
	if contact == "" {
		contact = owner.ContactNumber
	}

	i := &model.Item{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Type:        in.Type,
		Location:    strings.TrimSpace(in.Location),
		Date:        in.Date,
		Image:       in.Image,
		ContactInfo: contact,
		Status:      model.ItemStatusOpen,
		UserID:      owner.ID,
	}

	if err := s.items.CreateItem(ctx, i); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	i.Reporter = owner.Reporter()
	return i, nil
}

func (s *Items) Get(ctx context.Context, id string) (*model.Item, error) {
	i, err := s.items.ItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to fetch item: %w", err)
	}

	items := []model.Item{*i}
	if err := s.attachReporters(ctx, items); err != nil {
		return nil, err
	}

	return &items[0], nil
}

func (s *Items) List(ctx context.Context, f model.ItemFilter) ([]model.Item, error) {
	items, err := s.items.ListItems(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	if items == nil {
		items = []model.Item{}
	}

	if err := s.attachReporters(ctx, items); err != nil {
		return nil, err
	}

	return items, nil
}

// attachReporters loads the owners of all items with one query
func (s *Items) attachReporters(ctx context.Context, items []model.Item) error {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))

	for _, i := range items {
		if _, ok := seen[i.UserID]; !ok {
			seen[i.UserID] = struct{}{}
			ids = append(ids, i.UserID)
		}
	}

	users, err := s.users.UsersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch reporters: %w", err)
	}

	byID := make(map[string]*model.Reporter, len(users))
	for _, u := range users {
		byID[u.ID] = u.Reporter()
	}

	for idx := range items {
		items[idx].Reporter = byID[items[idx].UserID]
	}

	return nil
}

// owned loads an item and makes sure userID reported it
func (s *Items) owned(ctx context.Context, userID, id string) (*model.Item, error) {
	i, err := s.items.ItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to fetch item: %w", err)
	}

	if i.UserID != userID {
		return nil, ErrNotItemOwner
	}

	return i, nil
}

func (s *Items) Update(ctx context.Context, userID, id string, p ItemPatch) (*model.Item, error) {
	i, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		i.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		i.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		i.Category = *p.Category
	}
	if p.Type != nil {
		i.Type = *p.Type
	}
	if p.Location != nil {
		i.Location = strings.TrimSpace(*p.Location)
	}
	if p.Date != nil {
		i.Date = *p.Date
	}
	if p.ContactInfo != nil {
		i.ContactInfo = strings.TrimSpace(*p.ContactInfo)
	}
	if p.Status != nil {
		i.Status = *p.Status
	}
	// Pointing the item at another image drops the uploaded one. Sending
	// the current URL back keeps it
	var oldKey string
	if p.Image != nil && *p.Image != i.Image {
		oldKey = i.ImageKey
		i.Image, i.ImageKey = *p.Image, ""
	}

	if err := s.items.SaveItem(ctx, i); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	if oldKey != "" && s.objects != nil {
		if err := s.objects.Delete(ctx, oldKey); err != nil {
			zap.L().Warn("Failed to delete replaced item image", zap.Error(err), zap.String("key", oldKey))
		}
	}

	items := []model.Item{*i}
	if err := s.attachReporters(ctx, items); err != nil {
		return nil, err
	}

	return &items[0], nil
}

func (s *Items) Delete(ctx context.Context, userID, id string) error {
	i, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.items.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}

	if i.ImageKey != "" && s.objects != nil {
		if err := s.objects.Delete(ctx, i.ImageKey); err != nil {
			zap.L().Warn("Failed to delete item image", zap.Error(err), zap.String("key", i.ImageKey))
		}
	}

	return nil
}

// AttachImage uploads r as the image of the item and replaces the previous
// one if there was any
func (s *Items) AttachImage(ctx context.Context, userID, id string, r io.Reader, contentType string) (*model.Item, error) {
	if s.objects == nil {
		return nil, ErrStorageDisabled
	}

	i, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	suffix, err := security.GenerateRandomToken(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate object key: %w", err)
	}

	key := fmt.Sprintf("items/%s/%s%s", i.ID, suffix, extensionFor(contentType))

	url, err := s.objects.Put(ctx, key, r, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	oldKey := i.ImageKey
	i.Image, i.ImageKey = url, key

	if err := s.items.SaveItem(ctx, i); err != nil {
		if derr := s.objects.Delete(ctx, key); derr != nil {
			zap.L().Warn("Failed to remove orphaned image", zap.Error(derr), zap.String("key", key))
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	if oldKey != "" {
		if err := s.objects.Delete(ctx, oldKey); err != nil {
			zap.L().Warn("Failed to delete previous item image", zap.Error(err), zap.String("key", oldKey))
		}
	}

	items := []model.Item{*i}
	if err := s.attachReporters(ctx, items); err != nil {
		return nil, err
	}

	return &items[0], nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}

	return ""
}
