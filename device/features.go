// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/cpu"
)

// Features describes the SIMD capabilities of the host running the queue.
type Features struct {
	HasAVX2      bool
	HasAVX512    bool
	HasSSE2      bool
	HasNEON      bool
	Architecture string
	NumCPU       int
}

// DetectFeatures reports the CPU features available to the current process.
func DetectFeatures() Features {
	return Features{
		HasAVX2:      cpu.X86.HasAVX2,
		HasAVX512:    cpu.X86.HasAVX512F,
		HasSSE2:      cpu.X86.HasSSE2,
		HasNEON:      cpu.ARM64.HasASIMD,
		Architecture: runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
	}
}

func (f Features) String() string {
	return fmt.Sprintf("%s/%d cpu avx2=%t avx512=%t sse2=%t neon=%t",
		f.Architecture, f.NumCPU, f.HasAVX2, f.HasAVX512, f.HasSSE2, f.HasNEON)
}
