package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/automation"
	"github.com/sells-group/domain-lead-pipeline/internal/classifier"
	"github.com/sells-group/domain-lead-pipeline/internal/enrich"
	"github.com/sells-group/domain-lead-pipeline/internal/export"
	"github.com/sells-group/domain-lead-pipeline/internal/metrics"
	"github.com/sells-group/domain-lead-pipeline/internal/osm"
	"github.com/sells-group/domain-lead-pipeline/internal/scorer"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
	syncer "github.com/sells-group/domain-lead-pipeline/internal/sync"
	"github.com/sells-group/domain-lead-pipeline/internal/verify"
	anthropicpkg "github.com/sells-group/domain-lead-pipeline/pkg/anthropic"
	"github.com/sells-group/domain-lead-pipeline/pkg/foursquare"
	"github.com/sells-group/domain-lead-pipeline/pkg/ntfy"
	"github.com/sells-group/domain-lead-pipeline/pkg/overpass"
	"github.com/sells-group/domain-lead-pipeline/pkg/places"
	"github.com/sells-group/domain-lead-pipeline/pkg/rdap"
	"github.com/sells-group/domain-lead-pipeline/pkg/searxng"
)

// pipelineEnv holds the store, clients and workers shared by all
// commands. Optional API clients stay nil when unconfigured; their
// phases are skipped.
type pipelineEnv struct {
	Store      store.Store
	Classifier *classifier.Runner
	Syncer     *syncer.Syncer
	Role       *enrich.RoleEnricher
	Places     *enrich.PlacesEnricher
	Foursquare *enrich.FoursquareEnricher
	Scorer     *scorer.Runner
	Exporter   *export.Exporter
	Verify     *verify.Runner
	Importer   *osm.Importer
	Controller *automation.Controller
	Metrics    *metrics.Collector

	verifiers    []verify.Verifier
	apiVerifiers []verify.Verifier
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initEnv connects the store, runs migrations, builds every worker and
// the automation controller. Callers should defer env.Close().
func initEnv(ctx context.Context) (*pipelineEnv, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("store.database_url is required (DLP_STORE_DATABASE_URL)")
	}

	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "connect store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env := &pipelineEnv{Store: st}
	env.Syncer = syncer.NewSyncer(st, cfg.Store.BatchSize)
	env.Exporter = export.New(st, cfg.Export.Dir)
	env.Scorer = scorer.NewRunner(st, scorer.NewChains())
	env.Verify = verify.NewRunner(st)
	env.Role = enrich.NewRoleEnricher(st)
	env.Metrics = metrics.NewCollector(st)

	env.Classifier = classifier.NewRunner(st, buildClassifier(), cfg.Pipeline.ClassifierWorkers)

	overpassClient := overpass.NewClient(
		overpass.WithEndpoints(cfg.Overpass.Endpoints),
		overpass.WithRetries(cfg.Overpass.Retries),
		overpass.WithRetryDelay(time.Duration(cfg.Overpass.RetryDelaySecs)*time.Second),
	)
	env.Importer = osm.NewImporter(st, overpassClient, cfg.Overpass)

	searxngClient := searxng.NewClient(searxng.WithBaseURL(cfg.SearXNG.BaseURL))

	env.verifiers = []verify.Verifier{
		verify.NewDomainGuessVerifier(),
		verify.NewSearxngVerifier(searxngClient),
	}
	if cfg.Anthropic.Key != "" {
		llm := anthropicpkg.NewClient(cfg.Anthropic.Key)
		env.verifiers = append(env.verifiers,
			verify.NewLLMVerifier(llm, searxngClient, cfg.Anthropic.Model))
	} else {
		zap.L().Debug("DLP_ANTHROPIC_KEY not set, llm verifier disabled")
	}
	env.verifiers = append(env.verifiers,
		verify.NewDDGVerifier(),
		verify.NewGoogleSearchVerifier(),
	)

	if cfg.Places.Key != "" {
		placesClient := places.NewClient(cfg.Places.Key)
		env.apiVerifiers = append(env.apiVerifiers, verify.NewGooglePlacesVerifier(placesClient))
		env.Places = enrich.NewPlacesEnricher(st, placesClient)
	} else {
		zap.L().Debug("DLP_PLACES_KEY not set, google places verification disabled")
	}
	if cfg.Foursquare.Key != "" {
		fsqClient := foursquare.NewClient(cfg.Foursquare.Key)
		env.apiVerifiers = append(env.apiVerifiers, verify.NewFoursquareVerifier(fsqClient))
		env.Foursquare = enrich.NewFoursquareEnricher(st, fsqClient)
	} else {
		zap.L().Debug("DLP_FOURSQUARE_KEY not set, foursquare verification disabled")
	}

	runner := automation.NewRunner(automation.RunnerDeps{
		Store:        st,
		Syncer:       env.Syncer,
		Classifier:   env.Classifier,
		Role:         env.Role,
		Places:       env.Places,
		Foursquare:   env.Foursquare,
		Scorer:       env.Scorer,
		Exporter:     env.Exporter,
		Verify:       env.Verify,
		Verifiers:    env.verifiers,
		APIVerifiers: env.apiVerifiers,
		Importer:     env.Importer,
		OverpassCfg:  cfg.Overpass,
	})

	var notifier ntfy.Client
	if cfg.Ntfy.Topic != "" {
		notifier = ntfy.NewClient(cfg.Ntfy.Topic, ntfy.WithServer(cfg.Ntfy.Server))
	}
	env.Controller = automation.NewController(runner, automation.SettingsFromConfig(cfg), notifier)

	return env, nil
}

func buildClassifier() *classifier.Classifier {
	dnsOpts := []classifier.DNSOption{
		classifier.WithDNSTimeout(time.Duration(cfg.DNS.TimeoutSecs) * time.Second),
		classifier.WithCheckWWW(cfg.DNS.CheckWWW),
	}
	if cfg.DNS.Server != "" {
		dnsOpts = append(dnsOpts, classifier.WithDNSServers([]string{cfg.DNS.Server}))
	}

	opts := []classifier.Option{
		classifier.WithRDAPClient(rdap.NewClient(rdap.WithBaseURL(cfg.RDAP.BaseURL))),
		classifier.WithResolver(classifier.NewDNSResolver(dnsOpts...)),
		classifier.WithProber(classifier.NewHTTPProber(time.Duration(cfg.Probe.TimeoutSecs) * time.Second)),
	}
	if cfg.Probe.TCPEnabled {
		opts = append(opts, classifier.WithTCPProber(
			classifier.NewTCPProber(cfg.Probe.TCPPorts, time.Duration(cfg.Probe.TCPTimeoutSecs)*time.Second)))
	}
	return classifier.New(opts...)
}

// verifierBySource resolves a CLI source name to its verifier.
func (pe *pipelineEnv) verifierBySource(source string) (verify.Verifier, bool) {
	for _, v := range append(append([]verify.Verifier{}, pe.verifiers...), pe.apiVerifiers...) {
		if v.Source() == source {
			return v, true
		}
	}
	return nil, false
}

// verifierSources lists the sources available in this environment.
func (pe *pipelineEnv) verifierSources() []string {
	var out []string
	for _, v := range append(append([]verify.Verifier{}, pe.verifiers...), pe.apiVerifiers...) {
		out = append(out, v.Source())
	}
	return out
}
