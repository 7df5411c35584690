package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"bitwise74/seed-swap/internal/apperr"
	"bitwise74/seed-swap/internal/model"
)

const contactSubject = "Seed Swap Inquiry"

type ContactInput struct {
	SeedIDs []string `form:"selectedSeeds"`
	Address string   `form:"address"`
}

// MailtoLink is a ready to open mail to one owner about all of their
// selected seeds
type MailtoLink struct {
	OwnerUsername string
	OwnerEmail    string
	Seeds         []string
	Href          string
}

// ContactLinks loads the selected listings and builds one mailto link per
// owner. Unknown ids are skipped.
func (s *SeedService) ContactLinks(ctx context.Context, in ContactInput) ([]MailtoLink, error) {
	in.Address = strings.TrimSpace(in.Address)

	var errs apperr.FieldErrors
	if len(in.SeedIDs) == 0 {
		errs = errs.Add("selectedSeeds", "Select at least one seed")
	}
	if in.Address == "" {
		errs = errs.Add("address", "Please enter your address.")
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	listings := []model.Listing{}

	err := s.listings(ctx).
		Where("seeds.id IN ?", in.SeedIDs).
		Order("seeds.created_at DESC").
		Order("seeds.id").
		Scan(&listings).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch selected seeds, %w", err)
	}

	if len(listings) == 0 {
		return nil, apperr.NotFound("None of the selected seeds exist anymore")
	}

	return BuildMailtoLinks(listings, in.Address), nil
}

// BuildMailtoLinks groups listings by owner email, keeping the order in
// which each owner first appears
func BuildMailtoLinks(listings []model.Listing, address string) []MailtoLink {
	var links []MailtoLink
	index := map[string]int{}

	for _, l := range listings {
		i, ok := index[l.OwnerEmail]
		if !ok {
			i = len(links)
			index[l.OwnerEmail] = i
			links = append(links, MailtoLink{
				OwnerUsername: l.OwnerUsername,
				OwnerEmail:    l.OwnerEmail,
			})
		}

		links[i].Seeds = append(links[i].Seeds, l.PlantType+" - "+l.VarietyName)
	}

	for i := range links {
		links[i].Href = mailtoHref(links[i], address)
	}

	return links
}

func mailtoHref(l MailtoLink, address string) string {
	var body strings.Builder

	fmt.Fprintf(&body, "Hello %s,\n\nI'm interested in the following seeds:\n", l.OwnerUsername)
	for _, s := range l.Seeds {
		fmt.Fprintf(&body, "• %s\n", s)
	}
	fmt.Fprintf(&body, "\nPlease send the seeds to the following address:\n%s\n\nThank you!", address)

	return fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		mailtoEscape(l.OwnerEmail), mailtoEscape(contactSubject), mailtoEscape(body.String()))
}

// mailtoEscape percent-encodes s. Mail clients don't treat + as a space so
// spaces are always written as %20.
func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
