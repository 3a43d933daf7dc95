/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/jpeg"
	_ "image/png"
)

// ErrAssetNotFound reports an image layer URL that no asset exists for.
// Renders treat it as recoverable and draw a placeholder; every other
// resolver error aborts the render.
var ErrAssetNotFound = errors.New("asset not found")

// AssetResolver maps image layer content URLs to decoded images.
type AssetResolver interface {
	Resolve(url string) (image.Image, error)
}

// DirResolver resolves slash-separated asset URLs against a project root on
// disk, typically the directory holding panels/ and refs/. URLs must stay
// inside the root.
type DirResolver struct {
	Root string
}

func (r DirResolver) Resolve(url string) (image.Image, error) {
	rel := filepath.FromSlash(url)
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("asset url %q escapes the project root", url)
	}
	f, err := os.Open(filepath.Join(r.Root, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", url, ErrAssetNotFound)
		}
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", url, err)
	}
	return img, nil
}

// nullResolver treats every asset as missing. Used when RenderSheet is
// called without a resolver, so geometry-only sheets still render.
type nullResolver struct{}

func (nullResolver) Resolve(url string) (image.Image, error) {
	return nil, fmt.Errorf("%s: %w", url, ErrAssetNotFound)
}
