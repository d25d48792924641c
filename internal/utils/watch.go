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

package utils

import (
	"context"
	"path/filepath"

	"github.com/cloudwego/metroresponder/llm/log"
	"github.com/fsnotify/fsnotify"
)

// WatchDir calls cb for every filesystem event under dir until ctx is done.
// The watcher is not recursive.
func WatchDir(ctx context.Context, dir string, cb func(op fsnotify.Op, file string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapError(err, "create watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return WrapError(err, "watch %s", dir)
	}
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				cb(ev.Op, filepath.Clean(ev.Name))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error("watch %s: %v", dir, err)
			}
		}
	}()
	return nil
}
