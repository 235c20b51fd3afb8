package classifier

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/miekg/dns"
)

var defaultDNSServers = []string{"1.1.1.1:53", "8.8.8.8:53"}

// DNSResult collects the record-presence flags for one domain.
type DNSResult struct {
	HasA         bool
	HasAAAA      bool
	HasCNAME     bool
	HasMX        bool
	HasNS        bool
	CNAMETargets []string
	// Errors maps "host/RTYPE" to the failure message for server or
	// transport faults. Timeouts and NXDOMAIN are not failures.
	Errors map[string]string
}

// AnyRecord reports whether any record type resolved.
func (r *DNSResult) AnyRecord() bool {
	return r.HasA || r.HasAAAA || r.HasCNAME || r.HasMX || r.HasNS
}

// HadErrors reports whether any lookup hit a server/transport fault.
func (r *DNSResult) HadErrors() bool {
	return len(r.Errors) > 0
}

// DNSResolver queries authoritative records directly over UDP.
type DNSResolver struct {
	servers  []string
	timeout  time.Duration
	checkWWW bool
	client   *dns.Client
}

// DNSOption configures the resolver.
type DNSOption func(*DNSResolver)

// WithDNSServers overrides the default public resolvers.
func WithDNSServers(servers []string) DNSOption {
	return func(r *DNSResolver) {
		if len(servers) > 0 {
			r.servers = servers
		}
	}
}

// WithDNSTimeout sets the per-query timeout.
func WithDNSTimeout(d time.Duration) DNSOption {
	return func(r *DNSResolver) {
		if d > 0 {
			r.timeout = d
			r.client.Timeout = d
		}
	}
}

// WithCheckWWW also resolves A/AAAA/CNAME for the www host.
func WithCheckWWW(enabled bool) DNSOption {
	return func(r *DNSResolver) {
		r.checkWWW = enabled
	}
}

// NewDNSResolver creates a resolver with 5s timeouts and www checks on.
func NewDNSResolver(opts ...DNSOption) *DNSResolver {
	r := &DNSResolver{
		servers:  defaultDNSServers,
		timeout:  5 * time.Second,
		checkWWW: true,
		client:   &dns.Client{Timeout: 5 * time.Second},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve queries A, AAAA, CNAME, MX and NS for the apex, plus the www
// host when enabled. NXDOMAIN, empty answers and timeouts count as "no
// record"; SERVFAIL and transport faults are recorded per (host, type).
func (r *DNSResolver) Resolve(ctx context.Context, domain string) *DNSResult {
	result := &DNSResult{Errors: map[string]string{}}

	apexTypes := map[uint16]string{
		dns.TypeA:     "A",
		dns.TypeAAAA:  "AAAA",
		dns.TypeCNAME: "CNAME",
		dns.TypeMX:    "MX",
		dns.TypeNS:    "NS",
	}
	for qtype, label := range apexTypes {
		r.query(ctx, domain, qtype, label, result)
	}

	if r.checkWWW {
		www := "www." + domain
		for _, q := range []struct {
			qtype uint16
			label string
		}{
			{dns.TypeA, "A"},
			{dns.TypeAAAA, "AAAA"},
			{dns.TypeCNAME, "CNAME"},
		} {
			r.query(ctx, www, q.qtype, q.label, result)
		}
	}

	return result
}

func (r *DNSResolver) query(ctx context.Context, host string, qtype uint16, label string, result *DNSResult) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)

	var (
		resp *dns.Msg
		err  error
	)
	for _, server := range r.servers {
		resp, _, err = r.client.ExchangeContext(ctx, msg, server)
		if err == nil {
			break
		}
	}
	if err != nil {
		if isDNSTimeout(err) {
			return
		}
		result.Errors[host+"/"+label] = err.Error()
		return
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return
	default:
		result.Errors[host+"/"+label] = dns.RcodeToString[resp.Rcode]
		return
	}

	for _, rr := range resp.Answer {
		switch record := rr.(type) {
		case *dns.A:
			result.HasA = true
		case *dns.AAAA:
			result.HasAAAA = true
		case *dns.CNAME:
			result.HasCNAME = true
			result.CNAMETargets = append(result.CNAMETargets, record.Target)
		case *dns.MX:
			result.HasMX = true
		case *dns.NS:
			result.HasNS = true
		}
	}
}

func isDNSTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
