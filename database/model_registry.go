/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"sync"

	"github.com/uptrace/bun"
)

var defaultRegistry = &modelRegistry{}

// modelRegistry collects models that bun must know before it can resolve
// relations through them, such as m2m join tables.
type modelRegistry struct {
	mu     sync.RWMutex
	models []interface{}
}

func (r *modelRegistry) register(models ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, models...)
}

func (r *modelRegistry) instances() []interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]interface{}, len(r.models))
	copy(out, r.models)
	return out
}

// RegisterModel adds struct pointers, typically (*Model)(nil), that are
// registered on every database the managers connect.
func RegisterModel(models ...interface{}) {
	defaultRegistry.register(models...)
}

// RegisteredModels returns the registered models in registration order.
func RegisteredModels() []interface{} {
	return defaultRegistry.instances()
}

func registerModels(db *bun.DB) {
	if models := RegisteredModels(); len(models) > 0 {
		db.RegisterModel(models...)
	}
}
