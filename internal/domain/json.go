/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// layerJSON is the wire shape of a layer: the envelope plus a raw content
// blob whose schema follows Type. Keeping content flat (not nested per
// variant) matches the persisted grid file format.
type layerJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      LayerType       `json:"type"`
	Visible   bool            `json:"visible"`
	Locked    bool            `json:"locked"`
	Opacity   float64         `json:"opacity"`
	BlendMode BlendMode       `json:"blendMode"`
	Content   json.RawMessage `json:"content,omitempty"`
}

func (l Layer) MarshalJSON() ([]byte, error) {
	w := layerJSON{
		ID:        l.ID,
		Name:      l.Name,
		Type:      l.Type,
		Visible:   l.Visible,
		Locked:    l.Locked,
		Opacity:   l.Opacity,
		BlendMode: l.BlendMode,
	}
	var content any
	switch {
	case l.Content.Image != nil:
		content = l.Content.Image
	case l.Content.Annotation != nil:
		content = l.Content.Annotation
	case l.Content.Effect != nil:
		content = l.Content.Effect
	}
	if content != nil {
		b, err := json.Marshal(content)
		if err != nil {
			return nil, fmt.Errorf("marshal %s layer content: %w", l.Type, err)
		}
		w.Content = b
	}
	return json.Marshal(w)
}

func (l *Layer) UnmarshalJSON(data []byte) error {
	var w layerJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = Layer{
		ID:        w.ID,
		Name:      w.Name,
		Type:      w.Type,
		Visible:   w.Visible,
		Locked:    w.Locked,
		Opacity:   w.Opacity,
		BlendMode: w.BlendMode,
	}
	if len(w.Content) == 0 || bytes.Equal(w.Content, []byte("null")) {
		return nil
	}
	switch w.Type {
	case LayerImage:
		var c ImageContent
		if err := json.Unmarshal(w.Content, &c); err != nil {
			return fmt.Errorf("decode image layer content: %w", err)
		}
		l.Content.Image = &c
	case LayerAnnotation:
		var c AnnotationContent
		if err := json.Unmarshal(w.Content, &c); err != nil {
			return fmt.Errorf("decode annotation layer content: %w", err)
		}
		l.Content.Annotation = &c
	case LayerEffect:
		var c EffectContent
		if err := json.Unmarshal(w.Content, &c); err != nil {
			return fmt.Errorf("decode effect layer content: %w", err)
		}
		l.Content.Effect = &c
	default:
		// Unknown layer type: keep the envelope, drop the payload. The
		// validators flag the type; failing the whole decode here would
		// make one foreign layer unreadable instead of one invalid.
	}
	return nil
}
