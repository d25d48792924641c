// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package incident

import (
	"github.com/pkg/errors"
)

// Failure classes of a run. Only ErrClientInput reaches the caller as an
// error; the others degrade the run to the fallback trail.
var (
	ErrConfiguration            = errors.New("configuration failure")
	ErrInsufficientParticipants = errors.New("insufficient participants")
	ErrExecution                = errors.New("execution error")
	ErrClientInput              = errors.New("missing or empty 'input' field")
)
