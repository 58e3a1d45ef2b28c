package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mchmarny/chefskiss/pkg/data"
	"github.com/mchmarny/chefskiss/pkg/net"
	"github.com/mchmarny/chefskiss/pkg/runtime"
	"github.com/urfave/cli/v3"
)

var errVerifyFailed = errors.New("some essential checks failed")

func newVerifyCmd() *cli.Command {
	return &cli.Command{
		Name:   "verify",
		Usage:  "Check that the model and data artifacts are in place and load",
		Action: cmdVerify,
	}
}

type Check struct {
	Name      string `json:"name" yaml:"name"`
	OK        bool   `json:"ok" yaml:"ok"`
	Essential bool   `json:"essential" yaml:"essential"`
	Detail    string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type VerifyResult struct {
	Passed bool     `json:"passed" yaml:"passed"`
	Checks []*Check `json:"checks" yaml:"checks"`
}

func (v *VerifyResult) add(c *Check) {
	v.Checks = append(v.Checks, c)
	if c.Essential && !c.OK {
		v.Passed = false
	}
}

func cmdVerify(ctx context.Context, cmd *cli.Command) error {
	res := verifySetup(ctx, runtimeSources(getConfig(cmd)))
	if err := encode(res); err != nil {
		return err
	}
	if !res.Passed {
		return errVerifyFailed
	}
	return nil
}

func verifySetup(ctx context.Context, src runtime.Sources) *VerifyResult {
	res := &VerifyResult{Passed: true}

	res.add(checkArtifact("Model artifact", src.Model, true))
	res.add(checkArtifact("Dataset", src.Data, true))
	if src.Cities != "" {
		res.add(checkArtifact("City mapping", src.Cities, false))
	}

	if !res.Passed {
		res.add(&Check{Name: "Runtime", Essential: true, Detail: "skipped, artifacts missing"})
		return res
	}

	rt, err := runtime.Load(ctx, src)
	if err != nil {
		res.add(&Check{Name: "Runtime", Essential: true, Detail: err.Error()})
		return res
	}

	res.add(&Check{
		Name:      "Runtime",
		OK:        true,
		Essential: true,
		Detail: fmt.Sprintf("%s model, %d zip codes, %d cities",
			rt.Model.Kind(), rt.Store.Len(), rt.Resolver.Len()),
	})

	explainer := &Check{Name: "Attribution", OK: rt.ExplainerAvailable()}
	if !explainer.OK {
		explainer.Detail = "not available, scores will not include top features"
	}
	res.add(explainer)

	return res
}

func checkArtifact(name, src string, essential bool) *Check {
	c := &Check{Name: name, Essential: essential}

	if src == "" {
		c.Detail = "not configured"
		return c
	}
	if net.IsRemote(src) {
		c.OK = true
		c.Detail = "remote, fetched on load: " + src
		return c
	}

	kind, loc, err := data.ParseSource(src)
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	if kind == data.SourcePostgres {
		c.OK = true
		c.Detail = "postgres, checked on load"
		return c
	}

	if _, err := os.Stat(loc); err != nil {
		c.Detail = "NOT FOUND: " + loc
		return c
	}
	c.OK = true
	c.Detail = loc
	return c
}
