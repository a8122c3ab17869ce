package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "req_total",
	Description: "How many HTTP requests processed, partitioned by status code and HTTP method.",
	Type:        "counter_vec",
	Args:        []string{"code", "method", "url"},
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "req_dur_ms",
	Description: "The HTTP request latencies in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"code", "method", "url"},
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "resp_sz_bytes",
	Description: "The HTTP response sizes in bytes.",
	Type:        "summary_vec",
	Args:        []string{"code", "method", "url"},
}

var defaultMetricPath = "/metrics"

type Logger interface {
	Errorf(format string, v ...interface{})
}

// Prometheus instruments a gin engine and exposes the registry it writes to.
type Prometheus struct {
	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec
	resSz  *prometheus.SummaryVec

	registry prometheus.Gatherer
	router   *gin.Engine

	MetricsPath string
	// URLLabel maps a request to its "url" label. Defaults to the matched route.
	URLLabel func(c *gin.Context) string

	logger Logger
}

type NewPrometheusOptions struct {
	Subsystem  string
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Logger     Logger
}

func NewPrometheus(options NewPrometheusOptions) *Prometheus {
	reg, gatherer := options.Registerer, options.Gatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	p := &Prometheus{
		registry:    gatherer,
		MetricsPath: defaultMetricPath,
		URLLabel: func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return "unmatched"
		},
		logger: options.Logger,
	}
	for _, def := range []*Metric{reqCnt, reqDur, resSz} {
		c := register(reg, NewMetric(def, options.Subsystem))
		switch def {
		case reqCnt:
			p.reqCnt = c.(*prometheus.CounterVec)
		case reqDur:
			p.reqDur = c.(*prometheus.HistogramVec)
		case resSz:
			p.resSz = c.(*prometheus.SummaryVec)
		}
	}
	return p
}

// SetListenAddress serves the metrics path on its own listener, keeping
// GET /metrics out of the API access log. An empty address mounts it on the
// instrumented engine instead.
func (p *Prometheus) SetListenAddress(address string) {
	if address == "" {
		return
	}
	p.router = gin.New()
	p.router.GET(p.MetricsPath, p.handler())
	go func() {
		if err := p.router.Run(address); err != nil && p.logger != nil {
			p.logger.Errorf("metrics listener stopped: %v", err)
		}
	}()
}

// Use adds the middleware to a gin engine.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.HandlerFunc())
	if p.router == nil {
		e.GET(p.MetricsPath, p.handler())
	}
}

func (p *Prometheus) handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// HandlerFunc defines handler function for middleware
func (p *Prometheus) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == p.MetricsPath {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		url := p.URLLabel(c)

		p.reqDur.WithLabelValues(status, c.Request.Method, url).Observe(MillisecondsSince(start))
		p.reqCnt.WithLabelValues(status, c.Request.Method, url).Inc()
		p.resSz.WithLabelValues(status, c.Request.Method, url).Observe(float64(c.Writer.Size()))
	}
}
