/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package prompt

import (
	"context"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cloudwego/metroresponder/internal/utils"
	"github.com/cloudwego/metroresponder/llm/log"
	"github.com/fsnotify/fsnotify"
)

type Prompt interface {
	String() string
}

type TextPrompt string

func (p TextPrompt) String() string {
	return string(p)
}

func NewTextPrompt(content string) Prompt {
	return TextPrompt(content)
}

//go:embed steps/*.md
var stepFS embed.FS

const promptExt = ".md"

// DefaultStepPrompt returns the built-in system prompt of the step with the given key.
func DefaultStepPrompt(key string) (Prompt, bool) {
	bs, err := stepFS.ReadFile("steps/" + key + promptExt)
	if err != nil {
		return nil, false
	}
	return TextPrompt(bs), true
}

// Store resolves step prompts, preferring `<dir>/<key>.md` over the built-in ones.
type Store struct {
	dir       string
	mu        sync.RWMutex
	overrides map[string]TextPrompt
}

// NewStore loads every override found in dir. An empty dir yields a store of defaults only.
func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir, overrides: map[string]TextPrompt{}}
	if dir == "" {
		return s, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, utils.WrapError(err, "read prompt dir %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != promptExt {
			continue
		}
		if err := s.load(filepath.Join(dir, e.Name())); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func keyOf(file string) string {
	return strings.TrimSuffix(filepath.Base(file), promptExt)
}

func (s *Store) load(file string) error {
	bs, err := os.ReadFile(file)
	if err != nil {
		return utils.WrapError(err, "read prompt %s", file)
	}
	s.mu.Lock()
	s.overrides[keyOf(file)] = TextPrompt(bs)
	s.mu.Unlock()
	return nil
}

func (s *Store) drop(file string) {
	s.mu.Lock()
	delete(s.overrides, keyOf(file))
	s.mu.Unlock()
}

// Get returns the prompt of the step, or nil if neither an override nor a default exists.
func (s *Store) Get(key string) Prompt {
	if s != nil {
		s.mu.RLock()
		p, ok := s.overrides[key]
		s.mu.RUnlock()
		if ok {
			return p
		}
	}
	if p, ok := DefaultStepPrompt(key); ok {
		return p
	}
	return nil
}

// Watch reloads overrides whenever a file in the directory changes, until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	return utils.WatchDir(ctx, s.dir, func(op fsnotify.Op, file string) {
		if filepath.Ext(file) != promptExt {
			return
		}
		switch {
		case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
			s.drop(file)
			log.Info("prompt %s removed, using default", keyOf(file))
		case op.Has(fsnotify.Write), op.Has(fsnotify.Create):
			if err := s.load(file); err != nil {
				log.Warn("reload prompt %s: %v", file, err)
				return
			}
			log.Info("prompt %s reloaded", keyOf(file))
		}
	})
}
