package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/mchmarny/chefskiss/pkg/feature"
	"github.com/mchmarny/chefskiss/pkg/runtime"
	"github.com/mchmarny/chefskiss/pkg/score"
	"github.com/urfave/cli/v3"
)

const (
	flagCity    = "city"
	flagState   = "state"
	flagSubtype = "subtype"
	flagPrice   = "price"
)

func newScoreCmd() *cli.Command {
	return &cli.Command{
		Name:      "score",
		Usage:     "Score every zip code of a city for a restaurant concept",
		UsageText: `chefskiss score --city Philadelphia --state PA --subtype Italian --price 2`,
		Action:    cmdScore,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagCity,
				Usage:    "City name (e.g. Philadelphia)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  flagState,
				Usage: "State code to disambiguate the city (optional)",
			},
			&cli.StringFlag{
				Name:     flagSubtype,
				Usage:    fmt.Sprintf("Restaurant type [%s]", strings.Join(feature.Subtypes(), ", ")),
				Required: true,
			},
			&cli.FloatFlag{
				Name:     flagPrice,
				Usage:    fmt.Sprintf("Price level from %.1f (cheapest) to %.1f (most expensive)", feature.MinPrice, feature.MaxPrice),
				Required: true,
			},
		},
	}
}

func newCitiesCmd() *cli.Command {
	return &cli.Command{
		Name:   "cities",
		Usage:  "List the cities that can be scored",
		Action: cmdCities,
	}
}

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	q := score.Query{
		City:    cmd.String(flagCity),
		State:   cmd.String(flagState),
		Subtype: cmd.String(flagSubtype),
		Price:   cmd.Float(flagPrice),
	}
	if err := q.Validate(); err != nil {
		return err
	}

	rt, err := runtime.Load(ctx, runtimeSources(getConfig(cmd)))
	if err != nil {
		return fmt.Errorf("loading model and data: %w", err)
	}

	resp, err := rt.Scorer.ScoreCity(ctx, q)
	if err != nil {
		return err
	}
	return encode(resp)
}

func cmdCities(ctx context.Context, cmd *cli.Command) error {
	rt, err := runtime.Load(ctx, runtimeSources(getConfig(cmd)))
	if err != nil {
		return fmt.Errorf("loading model and data: %w", err)
	}
	return encode(rt.Resolver.Cities())
}
