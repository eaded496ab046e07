package commands

import (
	"fmt"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/pagespeed"
)

// PageSpeedCmd implements the 'pagespeed' command.
type PageSpeedCmd struct {
	URL      string `help:"Override pagespeed.url"`
	Strategy string `help:"mobile or desktop (overrides pagespeed.strategy)"`
}

func (p *PageSpeedCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	req := pagespeed.Request{URL: cfg.PageSpeed.URL, Strategy: cfg.PageSpeed.Strategy, Key: cfg.PageSpeed.Key}
	if p.URL != "" {
		req.URL = p.URL
	}
	if p.Strategy != "" {
		req.Strategy = p.Strategy
	}

	ctx, cancel := signalContext()
	defer cancel()
	report, err := pagespeed.NewClient(cfg.PageSpeed.Endpoint, nil).Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Print(report.Format())
	return nil
}
