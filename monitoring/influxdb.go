package monitoring

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb "github.com/influxdata/influxdb1-client/v2"
	"github.com/pkg/errors"
	"github.com/theplant/clienttrace/log"
)

// InfluxConfig locates the InfluxDB database exchange records are written
// to. URL syntax is
//
//	https://<username>:<password>@<host>/<database>?batch-write-interval=10s&buffer-size=500&service-name=name
//
// batch-write-interval (default 1m) and buffer-size (default 5000) decide
// when buffered points are written, whichever comes first. service-name,
// when set, tags every point with service=<name>.
type InfluxConfig string

type influxCfg struct {
	addr        string
	username    string
	password    string
	database    string
	interval    time.Duration
	bufferSize  int
	serviceName string
}

const (
	defaultBatchWriteInterval = time.Minute
	defaultBufferSize         = 5000
)

func (c InfluxConfig) parse() (*influxCfg, error) {
	u, err := url.Parse(string(c))
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't parse influxdb url %v", string(c))
	} else if !u.IsAbs() {
		return nil, errors.Errorf("influxdb monitoring url %v not absolute url", string(c))
	}

	cfg := &influxCfg{
		addr:       fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		database:   strings.Trim(u.Path, "/"),
		interval:   defaultBatchWriteInterval,
		bufferSize: defaultBufferSize,
	}
	if cfg.database == "" {
		return nil, errors.Errorf("influxdb monitoring url %v not database", string(c))
	}
	if u.User != nil {
		cfg.username = u.User.Username()
		cfg.password, _ = u.User.Password()
	}

	q := u.Query()
	if v := q.Get("batch-write-interval"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, errors.Errorf("influxdb config parameter batch-write-interval %q is not a positive duration", v)
		}
		cfg.interval = d
	}
	if v := q.Get("buffer-size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errors.Errorf("influxdb config parameter buffer-size %q is not a positive number", v)
		}
		cfg.bufferSize = n
	}
	cfg.serviceName = q.Get("service-name")
	return cfg, nil
}

// NewInfluxdbMonitor creates a Monitor batching records into InfluxDB. The
// returned func flushes buffered points and stops the writer; it blocks
// until the final write attempt finished. An unreachable InfluxDB is not
// an error: failed writes are logged and retried with the next batch.
func NewInfluxdbMonitor(config InfluxConfig, logger log.Logger) (Monitor, func(), error) {
	cfg, err := config.parse()
	if err != nil {
		return nil, func() {}, err
	}

	client, err := influxdb.NewHTTPClient(influxdb.HTTPConfig{
		Addr:     cfg.addr,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, func() {}, errors.Wrapf(err, "couldn't initialize influxdb http client for %s", cfg.addr)
	}

	m, closer := newInfluxdbMonitor(cfg, client, logger)
	return m, func() {
		closer()
		client.Close()
	}, nil
}

func newInfluxdbMonitor(cfg *influxCfg, client influxdb.Client, logger log.Logger) (Monitor, func()) {
	m := &influxdbMonitor{
		cfg:    cfg,
		client: client,
		logger: logger.With("context", "clienttrace/monitoring.influxdb", "database", cfg.database),
		points: make(chan *influxdb.Point, cfg.bufferSize),
		done:   make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.writer()
	}()

	var once sync.Once
	return m, func() {
		once.Do(func() {
			close(m.done)
			wg.Wait()
		})
	}
}

type influxdbMonitor struct {
	cfg    *influxCfg
	client influxdb.Client
	logger log.Logger

	points chan *influxdb.Point
	done   chan struct{}
}

func (m *influxdbMonitor) writer() {
	var batch []*influxdb.Point
	ticker := time.NewTicker(m.cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case pt := <-m.points:
			batch = append(batch, pt)
			if len(batch) >= m.cfg.bufferSize {
				batch = m.write(batch)
			}
		case <-ticker.C:
			batch = m.write(batch)
		case <-m.done:
			for {
				select {
				case pt := <-m.points:
					batch = append(batch, pt)
				default:
					m.write(batch)
					return
				}
			}
		}
	}
}

// write sends batch and returns what should stay buffered: nothing on
// success, and the batch (up to twice the buffer size) on failure.
func (m *influxdbMonitor) write(batch []*influxdb.Point) []*influxdb.Point {
	if len(batch) == 0 {
		return nil
	}

	bp, err := influxdb.NewBatchPoints(influxdb.BatchPointsConfig{Database: m.cfg.database})
	if err == nil {
		bp.AddPoints(batch)
		err = m.client.Write(bp)
	}
	if err == nil {
		return nil
	}

	m.logger.Error().Log(
		"msg", fmt.Sprintf("influxdb write of %d points failed: %v", len(batch), err),
		"err", err,
		"point_count", len(batch),
	)
	if len(batch) >= 2*m.cfg.bufferSize {
		m.logger.Error().Log("msg", "influxdb buffer full, dropping points", "point_count", len(batch))
		return nil
	}
	return batch
}

func (m *influxdbMonitor) InsertRecord(measurement string, value interface{}, tags map[string]string, fields map[string]interface{}, at time.Time) {
	f := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	f["value"] = value

	t := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		t[k] = v
	}
	if m.cfg.serviceName != "" {
		t["service"] = m.cfg.serviceName
	}

	pt, err := influxdb.NewPoint(measurement, t, f, at)
	if err != nil {
		m.logger.Warn().Log("msg", "dropping metric", "metric", measurement, "err", err)
		return
	}

	select {
	case m.points <- pt:
	default:
		m.logger.Warn().Log("msg", "influxdb monitor busy, dropping metric", "metric", measurement)
	}
}

// CountError records value in measurement, tagged with the error's type.
func (m *influxdbMonitor) CountError(measurement string, value float64, err error) {
	m.InsertRecord(measurement+"_errors", value, map[string]string{"error": errType(err)}, nil, time.Now())
}
