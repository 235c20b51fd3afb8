// Package classifier decides the web-presence status of a domain from
// RDAP, authoritative DNS, concurrent HTTP probes and parking heuristics.
package classifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/pkg/rdap"
)

// Classifier runs all probes for one domain and combines them into a
// single DomainStatus.
type Classifier struct {
	rdap     rdap.Client
	resolver *DNSResolver
	prober   *HTTPProber
	tcp      *TCPProber // nil when the TCP probe is disabled
}

// Option configures the classifier.
type Option func(*Classifier)

// WithRDAPClient overrides the default RDAP client.
func WithRDAPClient(c rdap.Client) Option {
	return func(cl *Classifier) {
		cl.rdap = c
	}
}

// WithResolver overrides the default DNS resolver.
func WithResolver(r *DNSResolver) Option {
	return func(cl *Classifier) {
		cl.resolver = r
	}
}

// WithProber overrides the default HTTP prober.
func WithProber(p *HTTPProber) Option {
	return func(cl *Classifier) {
		cl.prober = p
	}
}

// WithTCPProber enables the optional TCP fallback probe.
func WithTCPProber(p *TCPProber) Option {
	return func(cl *Classifier) {
		cl.tcp = p
	}
}

// New creates a classifier with default probes.
func New(opts ...Option) *Classifier {
	cl := &Classifier{
		rdap:     rdap.NewClient(),
		resolver: NewDNSResolver(),
		prober:   NewHTTPProber(10 * time.Second),
	}
	for _, o := range opts {
		o(cl)
	}
	return cl
}

// Classify probes domain and returns the check row plus the new status.
// Probe failures are diagnostics, never classification aborts; DNS is the
// ground truth for registration.
func (cl *Classifier) Classify(ctx context.Context, d *model.Domain) (*model.WhoisCheck, model.DomainStatus) {
	diagnostics := map[string]any{}

	var (
		registrar      string
		rdapRegistered bool
	)
	rdapResult, err := cl.rdap.Lookup(ctx, d.Domain)
	if err != nil {
		diagnostics["rdap_error"] = err.Error()
	} else {
		rdapRegistered = rdapResult.Registered
		registrar = rdapResult.Registrar
		if len(rdapResult.Statuses) > 0 {
			diagnostics["rdap_statuses"] = rdapResult.Statuses
		}
	}

	dnsResult := cl.resolver.Resolve(ctx, d.Domain)
	if len(dnsResult.Errors) > 0 {
		diagnostics["dns_errors"] = dnsResult.Errors
	}

	probe := cl.prober.Probe(ctx, d.Domain)
	if len(probe.Errors) > 0 {
		diagnostics["http_errors"] = probe.Errors
	}
	if probe.FinalURL != "" {
		diagnostics["final_url"] = probe.FinalURL
	}

	tcpOpen := false
	if cl.tcp != nil && !probe.Success {
		tcpOpen = cl.tcp.Probe(ctx, d.Domain)
		diagnostics["tcp_open"] = tcpOpen
	}

	parked := DetectParking(probe.FinalURL, dnsResult.CNAMETargets, probe.Body)
	status := decideStatus(parked, dnsResult, probe.Success, tcpOpen)

	anyDNS := dnsResult.AnyRecord()
	registered := anyDNS || rdapRegistered

	check := &model.WhoisCheck{
		DomainID:     d.ID,
		IsRegistered: &registered,
		IsParked:     &parked,
		HasA:         &dnsResult.HasA,
		HasAAAA:      &dnsResult.HasAAAA,
		HasCNAME:     &dnsResult.HasCNAME,
		HasMX:        &dnsResult.HasMX,
		Registrar:    registrar,
	}
	hasHTTP := probe.Success
	check.HasHTTP = &hasHTTP
	if probe.StatusCode > 0 {
		sc := probe.StatusCode
		check.HTTPStatus = &sc
	}
	if len(diagnostics) > 0 {
		check.Raw = map[string]any{"diagnostics": diagnostics}
	}

	zap.L().Debug("classified domain",
		zap.String("domain", d.Domain),
		zap.String("status", string(status)),
		zap.Bool("dns_any", anyDNS),
		zap.Bool("http", probe.Success))

	return check, status
}

// decideStatus applies the precedence rules; first match wins.
func decideStatus(parked bool, dnsResult *DNSResult, httpSuccess, tcpOpen bool) model.DomainStatus {
	anyDNS := dnsResult.AnyRecord()
	switch {
	case parked:
		return model.StatusParked
	case dnsResult.HasA || dnsResult.HasAAAA || dnsResult.HasCNAME || httpSuccess || tcpOpen:
		return model.StatusHosted
	case anyDNS && dnsResult.HasMX:
		return model.StatusRegisteredNoWeb
	case anyDNS:
		return model.StatusRegisteredDNSOnly
	case dnsResult.HadErrors():
		return model.StatusDNSError
	default:
		return model.StatusUnregisteredCandidate
	}
}
