package session

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrNotFinalized 当前没有已完成的 DKG 纪元
var ErrNotFinalized = errors.New("no finalized DKG epoch")

var (
	metricsOnce       sync.Once
	roundDurationHist *prometheus.HistogramVec
	epochCounterGauge prometheus.Gauge
)

func ensureMetrics() {
	metricsOnce.Do(func() {
		roundDurationHist = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "htss",
			Name:      "dkg_round_duration_seconds",
			Help:      "Duration of one DKG round across all parties",
			Buckets:   prometheus.DefBuckets,
		}, []string{"round"})
		epochCounterGauge = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "htss",
			Name:      "dkg_epoch_counter",
			Help:      "Counter of the currently installed DKG epoch",
		})
	})
}

// Store 持有当前 DKG 纪元的进程内状态。
// 单写者（DKG 协调器）整体替换纪元，读者（签名协调器、API）永远不会
// 观察到半更新的纪元。
type Store struct {
	mu      sync.RWMutex
	epoch   *Epoch
	counter uint64
}

// NewStore 创建纪元存储
func NewStore() *Store {
	ensureMetrics()
	return &Store{}
}

// Current 返回当前纪元（可能为 nil）
func (s *Store) Current() *Epoch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// PublicKey 返回当前纪元的公钥；纪元不存在或未完成时返回 ErrNotFinalized
func (s *Store) PublicKey() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.epoch.Finalized() {
		return "", ErrNotFinalized
	}
	return s.epoch.PublicKey, nil
}

// Replace 原子安装新纪元并返回其计数。计数单调递增，跨越替换仍然有效，
// 使持有旧纪元引用的结果可以被识别为过期。
func (s *Store) Replace(e *Epoch) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	e.Counter = s.counter
	e.CreatedAt = time.Now()
	s.epoch = e
	epochCounterGauge.Set(float64(s.counter))
	return s.counter
}

// Discard 丢弃当前纪元（新 DKG 启动时的清场语义）。不回退计数。
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch = nil
}

// ObserveRoundDuration 记录一轮 DKG 的耗时
func (s *Store) ObserveRoundDuration(round string, d time.Duration) {
	roundDurationHist.WithLabelValues(round).Observe(d.Seconds())
}
