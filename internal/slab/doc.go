// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package slab provides a dense, integer-indexed container with
// stable-until-remove keys and smallest-free-slot reuse.
//
// It backs netcore's socket table: listeners, framed streams, and the
// control endpoint all live in one slab.Table keyed by their connection
// identifier.
package slab
