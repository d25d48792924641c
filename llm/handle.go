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

package llm

import (
	"context"
	"sync/atomic"

	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/metroresponder/internal/utils"
	"github.com/cloudwego/metroresponder/llm/log"
	"golang.org/x/sync/singleflight"
)

const probeMessage = "Reply with OK."

// Handle is the process-wide model client. It is built on first use and
// shared by every run afterwards. A failed build is not remembered, so the
// next caller tries again.
type Handle struct {
	cfg   ModelConfig
	build func(context.Context, ModelConfig) (ChatModel, error)
	group singleflight.Group
	chat  atomic.Pointer[chatBox]
}

type chatBox struct {
	ChatModel
}

func NewHandle(cfg ModelConfig) *Handle {
	return &Handle{cfg: cfg, build: NewChatModel}
}

// NewHandleWith builds the model with fn instead of NewChatModel.
func NewHandleWith(cfg ModelConfig, fn func(context.Context, ModelConfig) (ChatModel, error)) *Handle {
	return &Handle{cfg: cfg, build: fn}
}

func (h *Handle) Config() ModelConfig {
	return h.cfg
}

// Ready reports whether a model has been built.
func (h *Handle) Ready() bool {
	return h.chat.Load() != nil
}

// Get returns the shared model, building it if needed.
func (h *Handle) Get(ctx context.Context) (ChatModel, error) {
	if b := h.chat.Load(); b != nil {
		return b.ChatModel, nil
	}
	ch := h.group.DoChan("model", func() (any, error) {
		if b := h.chat.Load(); b != nil {
			return b.ChatModel, nil
		}
		// the build outlives a cancelled caller so that concurrent waiters still get it
		bctx := context.WithoutCancel(ctx)
		chat, err := h.build(bctx, h.cfg)
		if err != nil {
			return nil, utils.WrapError(err, "build model %s", h.cfg.Label())
		}
		if h.cfg.Probe {
			if err := probe(bctx, chat); err != nil {
				return nil, utils.WrapError(err, "probe model %s", h.cfg.Label())
			}
		}
		h.chat.Store(&chatBox{chat})
		log.Info("model %s ready", h.cfg.Label())
		return chat, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ChatModel), nil
	}
}

// Reset forgets the built model.
func (h *Handle) Reset() {
	h.chat.Store(nil)
}

func probe(ctx context.Context, chat ChatModel) error {
	out, err := chat.Generate(ctx, []*schema.Message{schema.UserMessage(probeMessage)})
	if err != nil {
		return err
	}
	log.Debug("probe answered: %q", out.Content)
	return nil
}
