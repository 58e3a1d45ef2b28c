package explain

import (
	"fmt"
	"strings"

	"github.com/mchmarny/chefskiss/pkg/feature"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	subtypePrefix  = feature.ColumnSubtype + "_"
	locationPrefix = feature.ColumnLocation + "_"
	areaMarker     = "_zip"
)

var (
	// cuisine metric name -> phrase format, %s is the cuisine
	cuisineMetrics = map[string]string{
		"avg_price":      "Average Price of %s Restaurants",
		"avg_stars":      "Average Rating of %s Restaurants",
		"median_age":     "Age of %s Restaurants",
		"median_reviews": "Review Count of %s Restaurants",
		"total_count":    "Number of %s Restaurants",
	}

	areaLabels = map[string]string{
		"zip_avg_star_rating":     "Average Restaurant Rating in Area",
		"zip_median_review_count": "Typical Review Count in Area",
		"zip_avg_price_range":     "Average Price Level in Area",
		"zip_median_business_age": "Typical Restaurant Age in Area",
		"zip_total_restaurants":   "Total Restaurants in Area",
	}

	demographicLabels = map[string]string{
		"total_population":    "Total Population",
		"median_age":          "Median Age of Residents",
		"white_population":    "White Population",
		"black_population":    "Black Population",
		"asian_population":    "Asian Population",
		"hispanic_population": "Hispanic Population",
		"pct_white":           "White Population %",
		"pct_black":           "Black Population %",
		"pct_asian":           "Asian Population %",
		"pct_hispanic":        "Hispanic Population %",
	}

	engineeredLabels = map[string]string{
		"competition_density":         "Competition Density",
		"market_share_of_competition": "Market Share of Similar Restaurants",
		"population_per_restaurant":   "People per Restaurant",
	}

	// evaluated in order, first match wins
	matchers = []matcher{
		matchSubtype,
		matchLocation,
		matchPrice,
		matchCuisineMetric,
		matchTable(areaLabels),
		matchTable(demographicLabels),
		matchTable(engineeredLabels),
	}
)

// matcher returns the display label for name and true when it applies.
type matcher func(name string) (string, bool)

// Label maps an expanded model feature name to a display label.
func Label(name string) string {
	for _, m := range matchers {
		if label, ok := m(name); ok {
			return label
		}
	}
	return title(name)
}

func matchSubtype(name string) (string, bool) {
	cuisine, ok := strings.CutPrefix(name, subtypePrefix)
	if !ok {
		return "", false
	}
	return "Restaurant Type: " + strings.ReplaceAll(cuisine, "_", " "), true
}

func matchLocation(name string) (string, bool) {
	id, ok := strings.CutPrefix(name, locationPrefix)
	if !ok {
		return "", false
	}
	return "Location: ZIP " + id, true
}

func matchPrice(name string) (string, bool) {
	if name != feature.ColumnPrice {
		return "", false
	}
	return "Price Level", true
}

func matchCuisineMetric(name string) (string, bool) {
	for _, cuisine := range feature.Subtypes() {
		metric, ok := strings.CutPrefix(name, cuisine+"_")
		if !ok {
			continue
		}
		metric = strings.ReplaceAll(metric, areaMarker, "")
		if format, ok := cuisineMetrics[metric]; ok {
			return fmt.Sprintf(format, cuisine), true
		}
		return cuisine + " Restaurant: " + title(metric), true
	}
	return "", false
}

func matchTable(labels map[string]string) matcher {
	return func(name string) (string, bool) {
		label, ok := labels[name]
		return label, ok
	}
}

// title turns snake_case into Title Case. Casers keep state, so each call
// gets its own.
func title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
