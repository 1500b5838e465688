package service

import (
	"context"
	"strings"

	"github.com/iliyamo/event-showcase/internal/apperr"
	"github.com/iliyamo/event-showcase/internal/model"
	"github.com/iliyamo/event-showcase/internal/store"
)

// Company edits the singleton company profile.
type Company struct {
	store *store.Store
}

func NewCompany(s *store.Store) *Company { return &Company{store: s} }

func (s *Company) Profile(ctx context.Context) (model.CompanyProfile, error) {
	c, err := s.store.Read(ctx)
	if err != nil {
		return model.CompanyProfile{}, err
	}
	return c.Company, nil
}

// Update merges d into the profile.
func (s *Company) Update(ctx context.Context, d CompanyDraft) (model.CompanyProfile, error) {
	c, err := s.store.Update(ctx, func(c *model.Catalog) error {
		return d.apply(&c.Company)
	})
	if err != nil {
		return model.CompanyProfile{}, err
	}
	return c.Company, nil
}

// AddContact appends a contact line; label and value are both required.
func (s *Company) AddContact(ctx context.Context, label, value string) (model.CompanyProfile, error) {
	label, value = strings.TrimSpace(label), strings.TrimSpace(value)
	if label == "" || value == "" {
		return model.CompanyProfile{}, apperr.Validation("enter label and value")
	}
	c, err := s.store.Update(ctx, func(c *model.Catalog) error {
		c.Company.Contacts = append(c.Company.Contacts, model.Contact{Label: label, Value: value})
		return nil
	})
	if err != nil {
		return model.CompanyProfile{}, err
	}
	return c.Company, nil
}

// RemoveContact drops the contact at index.
func (s *Company) RemoveContact(ctx context.Context, index int) (model.CompanyProfile, error) {
	c, err := s.store.Update(ctx, func(c *model.Catalog) error {
		if index < 0 || index >= len(c.Company.Contacts) {
			return apperr.NotFound("no contact at index %d", index)
		}
		c.Company.Contacts = append(c.Company.Contacts[:index], c.Company.Contacts[index+1:]...)
		return nil
	})
	if err != nil {
		return model.CompanyProfile{}, err
	}
	return c.Company, nil
}
