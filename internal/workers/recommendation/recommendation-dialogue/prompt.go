package recommendationdialogue

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"shopassist/internal/models"
)

const recommendationPrompt = `You are an intelligent laptop gadget expert. Your objective is to answer the user's questions about the laptops in the catalogue given in the user message, and about no other product.
Keep the user profile in mind while answering.
Start with a brief summary of each laptop in the following format, in decreasing order of price:
1. <Laptop Name> : <Major specifications of the laptop>, <Price in Rs>
2. <Laptop Name> : <Major specifications of the laptop>, <Price in Rs>
If the user asks about a laptop that is not in the catalogue, say that you can only discuss the shortlisted laptops.`

// ProfilePrefix opens the first user turn of the recommendation dialogue.
const ProfilePrefix = "This is my user profile"

// summaryKeys are the catalog columns shown in the shortlist summary, in order.
var summaryKeys = []string{
	"Core",
	"CPU Manufacturer",
	"Clock Speed",
	"RAM Size",
	"Storage Type",
	"Graphics Processor",
	"Display Size",
	"Screen Resolution",
	"Laptop Weight",
}

type product struct {
	Name        string            `json:"name"`
	Brand       string            `json:"brand,omitempty"`
	Price       int               `json:"price"`
	Score       int               `json:"score"`
	Description string            `json:"description,omitempty"`
	Specs       map[string]string `json:"specs,omitempty"`
}

// Initialize seeds the recommendation transcript for a shortlist. The system
// turn carries the summary sorted by decreasing price; the user turn lists the
// products.
func Initialize(profile models.RequirementProfile, shortlist []models.ScoredCandidate) (models.Transcript, error) {
	byPrice := make([]models.ScoredCandidate, len(shortlist))
	copy(byPrice, shortlist)
	sort.SliceStable(byPrice, func(i, j int) bool {
		return byPrice[i].Item.Price > byPrice[j].Item.Price
	})

	var b strings.Builder
	b.WriteString(recommendationPrompt)
	b.WriteString("\n####\nShortlisted laptops:\n")
	b.WriteString(Summary(byPrice))
	b.WriteString("####")

	products := make([]product, 0, len(shortlist))
	for _, c := range shortlist {
		products = append(products, product{
			Name:        c.Item.Name,
			Brand:       c.Item.Brand,
			Price:       c.Item.Price,
			Score:       c.Score,
			Description: c.Item.Description,
			Specs:       c.Item.Specs,
		})
	}
	listing, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shortlist: %w", err)
	}

	var t models.Transcript
	t = t.Append(models.RoleSystem, b.String())
	t = t.Append(models.RoleUser, "These are the user's products: "+string(listing))
	return t, nil
}

// Summary renders one numbered line per candidate, in the given order.
func Summary(candidates []models.ScoredCandidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s : %s, Rs %d\n", i+1, c.Item.Name, specSummary(c.Item), c.Item.Price)
	}
	return b.String()
}

func specSummary(item models.CandidateItem) string {
	var parts []string
	for _, k := range summaryKeys {
		if v, ok := item.Specs[k]; ok && v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	if item.Description != "" {
		return item.Description
	}
	return item.Features.Canonical()
}
