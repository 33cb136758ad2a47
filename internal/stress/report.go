// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"fmt"
	"strings"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

// maxViolations caps the violations kept verbatim in a Report.
const maxViolations = 32

// Report is the result of one stress run.
type Report struct {
	Engine    Engine `json:"engine"`
	Order     uint   `json:"order"`
	Capacity  int    `json:"capacity"`
	Producers int    `json:"producers"`
	Consumers int    `json:"consumers"`
	Mixed     bool   `json:"mixed,omitempty"`
	Pinned    bool   `json:"pinned,omitempty"`

	Produced int64 `json:"produced"`
	Consumed int64 `json:"consumed"`
	// Full and Empty count attempts that found the ring full or empty.
	Full  int64 `json:"full"`
	Empty int64 `json:"empty"`

	Elapsed    time.Duration `json:"elapsed_ns"`
	Throughput float64       `json:"throughput_msgs_sec"`

	// ViolationCount counts every correctness violation; Violations keeps
	// the first few.
	ViolationCount int      `json:"violation_count"`
	Violations     []string `json:"violations,omitempty"`

	Host Host `json:"host"`
}

// OK reports whether the run found no violations.
func (r *Report) OK() bool {
	return r.ViolationCount == 0
}

// JSON encodes r.
func (r *Report) JSON() ([]byte, error) {
	return sonnet.Marshal(r)
}

func (r *Report) violate(format string, args ...any) {
	r.ViolationCount++
	if len(r.Violations) < maxViolations {
		r.Violations = append(r.Violations, fmt.Sprintf(format, args...))
	}
}

// String formats r as a human-readable summary.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s order=%d cap=%d producers=%d consumers=%d",
		r.Engine, r.Order, r.Capacity, r.Producers, r.Consumers)
	if r.Mixed {
		b.WriteString(" mixed")
	}
	if r.Pinned {
		b.WriteString(" pinned")
	}
	fmt.Fprintf(&b, " => produced=%d consumed=%d full=%d empty=%d throughput=%.0f msgs/s took=%v",
		r.Produced, r.Consumed, r.Full, r.Empty, r.Throughput, r.Elapsed.Round(time.Millisecond))
	if r.OK() {
		b.WriteString(" ok")
		return b.String()
	}
	fmt.Fprintf(&b, " violations=%d", r.ViolationCount)
	for _, v := range r.Violations {
		b.WriteString("\n  ")
		b.WriteString(v)
	}
	return b.String()
}
