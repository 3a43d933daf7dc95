/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the StoryCore grid editor: the
// fixed 3x3 panel grid used to compose a master coherence sheet for
// consistent AI image generation. Ownership is strictly tree-shaped
// (grid -> panels -> layers); panels and layers are never shared across
// grids.

import (
	"encoding/json"
	"time"
)

// Grid dimensions and model bounds. The grid is fixed at 3x3; consumers
// assume a complete 9-panel configuration.
const (
	GridRows   = 3
	GridCols   = 3
	PanelCount = GridRows * GridCols

	// MinCropSize is the smallest normalized extent a crop region may have.
	MinCropSize = 0.01
	// MinScale is the floor applied to transform scale components.
	MinScale = 0.01
	// MaxRotationDeg bounds rotation to [-360, 360] degrees.
	MaxRotationDeg = 360.0

	MinZoom = 0.1
	MaxZoom = 10.0

	// CurrentVersion is the grid file format version written by this build.
	CurrentVersion = "1.0"
)

// Point is a real-valued 2D coordinate. Units depend on context: pixels for
// transform positions, normalized [0,1] for pivots and crop regions.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair, same unit conventions as Point.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Transform places a panel's content: pixel offset, per-axis scale, rotation
// in degrees and a normalized pivot the rotation/scale act around.
type Transform struct {
	Position Point   `json:"position"`
	Scale    Point   `json:"scale"`    // components > 0, floored at MinScale
	Rotation float64 `json:"rotation"` // degrees, [-360, 360]
	Pivot    Point   `json:"pivot"`    // normalized [0,1]
}

// CropRegion is a normalized sub-rectangle of a panel's content. A nil
// *CropRegion means "no crop". Valid regions satisfy width,height >=
// MinCropSize, x+width <= 1 and y+height <= 1.
type CropRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LayerType discriminates the content payload of a layer.
type LayerType string

const (
	LayerImage      LayerType = "image"
	LayerAnnotation LayerType = "annotation"
	LayerEffect     LayerType = "effect"
)

// BlendMode selects how a layer composites over the stack below it.
type BlendMode string

const (
	BlendNormal   BlendMode = "normal"
	BlendMultiply BlendMode = "multiply"
	BlendScreen   BlendMode = "screen"
	BlendOverlay  BlendMode = "overlay"
	BlendDarken   BlendMode = "darken"
	BlendLighten  BlendMode = "lighten"
)

// BlendModes lists every supported mode, in documentation order.
func BlendModes() []BlendMode {
	return []BlendMode{BlendNormal, BlendMultiply, BlendScreen, BlendOverlay, BlendDarken, BlendLighten}
}

// Layer is one element of a panel's composition stack. Array order is stack
// order, bottom first. Content is a tagged union keyed by Type.
type Layer struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      LayerType    `json:"type"`
	Visible   bool         `json:"visible"`
	Locked    bool         `json:"locked"`
	Opacity   float64      `json:"opacity"` // [0,1]
	BlendMode BlendMode    `json:"blendMode"`
	Content   LayerContent `json:"content"`
}

// LayerContent holds the per-type payload. Exactly one pointer is set,
// matching the owning layer's Type. Serialization flattens the set member
// into the layer's "content" field (see layer JSON methods).
type LayerContent struct {
	Image      *ImageContent      `json:"-"`
	Annotation *AnnotationContent `json:"-"`
	Effect     *EffectContent     `json:"-"`
}

// ImageContent references a rendered or imported raster for a panel.
type ImageContent struct {
	URL        string              `json:"url"`
	Width      int                 `json:"width,omitempty"`
	Height     int                 `json:"height,omitempty"`
	Generation *GenerationMetadata `json:"generation,omitempty"`
}

// AnnotationContent carries drawn markup: freehand strokes and placed text.
type AnnotationContent struct {
	Strokes []Stroke         `json:"strokes,omitempty"`
	Texts   []TextAnnotation `json:"texts,omitempty"`
}

// Stroke is a freehand polyline in panel-normalized coordinates.
type Stroke struct {
	Points []Point `json:"points"`
	Color  string  `json:"color,omitempty"` // #rrggbb
	Width  float64 `json:"width,omitempty"`
}

// TextAnnotation is a text label anchored at a normalized position.
type TextAnnotation struct {
	Position Point   `json:"position"`
	Text     string  `json:"text"`
	Size     float64 `json:"size,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// EffectContent describes an effect layer. Known effect types get a typed
// parameter struct; parameters for effect types this build does not know are
// preserved opaquely in Extra so round-tripping foreign files is lossless.
type EffectContent struct {
	EffectType  string             `json:"effectType"`
	Blur        *BlurParams        `json:"blur,omitempty"`
	Sharpen     *SharpenParams     `json:"sharpen,omitempty"`
	ColorAdjust *ColorAdjustParams `json:"colorAdjust,omitempty"`
	Extra       json.RawMessage    `json:"extra,omitempty"`
}

const (
	EffectBlur        = "blur"
	EffectSharpen     = "sharpen"
	EffectColorAdjust = "color_adjust"
)

type BlurParams struct {
	Radius float64 `json:"radius"`
}

type SharpenParams struct {
	Amount float64 `json:"amount"`
}

type ColorAdjustParams struct {
	Brightness float64 `json:"brightness,omitempty"`
	Contrast   float64 `json:"contrast,omitempty"`
	Saturation float64 `json:"saturation,omitempty"`
}

// PanelPosition addresses a cell of the 3x3 grid, zero-based.
type PanelPosition struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Panel is one grid cell. ID and Position are immutable after creation and
// tied together (ID = GeneratePanelID(Row, Col)); layers, transform, crop,
// annotations and metadata are the mutable parts.
type Panel struct {
	ID          string        `json:"id"`
	Position    PanelPosition `json:"position"`
	Layers      []Layer       `json:"layers"`
	Transform   Transform     `json:"transform"`
	Crop        *CropRegion   `json:"crop,omitempty"`
	Annotations []Annotation  `json:"annotations,omitempty"`
	Metadata    PanelMetadata `json:"metadata,omitempty"`
}

// Annotation is a lightweight note pinned directly to a panel, outside the
// layer stack. Drawn markup belongs in annotation layers instead.
type Annotation struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Position Point  `json:"position"`
	Color    string `json:"color,omitempty"`
}

// PanelMetadata is the generation planning state of a panel: what to render
// there and how. It feeds generation requests and the search index.
type PanelMetadata struct {
	Prompt         string `json:"prompt,omitempty"`
	Seed           int64  `json:"seed,omitempty"`
	StyleReference string `json:"styleReference,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// Preset is a named bundle of per-panel transforms and crops, row-major.
// Both slices are always exactly PanelCount long; NewPreset enforces this at
// construction so a stored preset is structurally valid.
type Preset struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	PanelTransforms []Transform   `json:"panelTransforms"`
	PanelCrops      []*CropRegion `json:"panelCrops"`
}

// GridMetadata carries the grid's bookkeeping timestamps and free-form info.
type GridMetadata struct {
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Title      string    `json:"title,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// GridConfiguration is the aggregate root: exactly PanelCount panels in
// row-major order plus presets and metadata. It serializes to the grid.json
// manifest.
type GridConfiguration struct {
	Version   string       `json:"version"` // "MAJOR.MINOR"
	ProjectID string       `json:"projectId"`
	Panels    []Panel      `json:"panels"`
	Presets   []Preset     `json:"presets,omitempty"`
	Metadata  GridMetadata `json:"metadata"`
}

// OperationType classifies a history record.
type OperationType string

const (
	OpTransform        OperationType = "transform"
	OpCrop             OperationType = "crop"
	OpLayerAdd         OperationType = "layer_add"
	OpLayerRemove      OperationType = "layer_remove"
	OpLayerReorder     OperationType = "layer_reorder"
	OpLayerModify      OperationType = "layer_modify"
	OpAnnotationAdd    OperationType = "annotation_add"
	OpAnnotationRemove OperationType = "annotation_remove"
	OpBatchGeneration  OperationType = "batch_generation"
)

// Operation is an immutable history record. Before and After are opaque JSON
// snapshots of whatever sub-state the operation type concerns; the log
// snapshots, it does not diff. Records are created on every mutating action
// and consumed only by the undo/redo stack.
type Operation struct {
	Type      OperationType `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Data      OperationData `json:"data"`
}

// OperationData addresses the mutated panel and carries the snapshots.
// Batch operations leave PanelID empty and snapshot all panels.
type OperationData struct {
	PanelID string          `json:"panelId,omitempty"`
	Before  json.RawMessage `json:"before,omitempty"`
	After   json.RawMessage `json:"after,omitempty"`
}

// ViewportState is the transient view of the editor: zoom, pan offset and
// the widget size. It is never persisted with the grid.
type ViewportState struct {
	Zoom   float64 `json:"zoom"` // [MinZoom, MaxZoom]
	Pan    Point   `json:"pan"`
	Bounds Size    `json:"bounds"`
}

// GenerationRequest is the contract handed to the external generation
// backend for one panel. This model supplies it but never performs the call.
type GenerationRequest struct {
	PanelID        string      `json:"panelId"`
	Prompt         string      `json:"prompt"`
	Seed           int64       `json:"seed,omitempty"`
	Transform      Transform   `json:"transform"`
	Crop           *CropRegion `json:"crop,omitempty"`
	StyleReference string      `json:"styleReference,omitempty"`
}

// GenerationResult is what the backend hands back once a panel render
// resolves. The model stores it; staleness against later edits is the
// caller's concern.
type GenerationResult struct {
	PanelID  string             `json:"panelId"`
	ImageURL string             `json:"imageUrl"`
	Metadata GenerationMetadata `json:"metadata"`
}

// GenerationMetadata records how an image was produced.
type GenerationMetadata struct {
	Seed             int64   `json:"seed,omitempty"`
	GenerationTimeMs int64   `json:"generationTimeMs,omitempty"`
	QualityScore     float64 `json:"qualityScore,omitempty"`
}
