// Copyright 2024 Google, LLC
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

package model

import (
	"encoding/json"
	"sort"
)

// LedgerTransaction is one entry of a wallet's paginated transaction listing.
type LedgerTransaction struct {
	TxHash string `json:"tx_hash"`
}

// MetadataValue is the value of a metadata key: either a scalar or an ordered
// list of scalars.
type MetadataValue struct {
	Scalar interface{}
	List   []interface{}
	IsList bool
}

// StringValue builds a scalar string value.
func StringValue(s string) MetadataValue {
	return MetadataValue{Scalar: s}
}

// ListValue builds a list value.
func ListValue(items ...interface{}) MetadataValue {
	return MetadataValue{List: items, IsList: true}
}

// UnmarshalJSON accepts any JSON value. Arrays become lists, everything else a scalar.
func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if list, ok := raw.([]interface{}); ok {
		*v = MetadataValue{List: list, IsList: true}
		return nil
	}
	*v = MetadataValue{Scalar: raw}
	return nil
}

// MarshalJSON writes the value back in its original shape.
func (v MetadataValue) MarshalJSON() ([]byte, error) {
	if v.IsList {
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Scalar)
}

// Matches reports whether the value equals digest or, for a list, contains an
// element equal to digest. Comparison is exact: no case folding, no trimming.
func (v MetadataValue) Matches(digest Digest) bool {
	if v.IsList {
		for _, item := range v.List {
			if s, ok := item.(string); ok && s == string(digest) {
				return true
			}
		}
		return false
	}
	s, ok := v.Scalar.(string)
	return ok && s == string(digest)
}

// MetadataEntry is one labelled metadata record attached to a transaction.
// HasMetadata is false when the record carried no json_metadata object.
type MetadataEntry struct {
	Label       string                   `json:"label"`
	Fields      map[string]MetadataValue `json:"json_metadata,omitempty"`
	HasMetadata bool                     `json:"-"`
}

// UnmarshalJSON tolerates json_metadata that is missing, null, or not an object.
func (e *MetadataEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Label        string          `json:"label"`
		JSONMetadata json.RawMessage `json:"json_metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = MetadataEntry{Label: raw.Label}
	if len(raw.JSONMetadata) == 0 {
		return nil
	}
	var fields map[string]MetadataValue
	if err := json.Unmarshal(raw.JSONMetadata, &fields); err != nil || fields == nil {
		return nil
	}
	e.Fields = fields
	e.HasMetadata = true
	return nil
}

// SortedKeys returns the metadata keys in lexical order.
func (e *MetadataEntry) SortedKeys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FindDigest returns the first key (in lexical order) whose value matches digest.
func (e *MetadataEntry) FindDigest(digest Digest) (string, bool) {
	if !e.HasMetadata {
		return "", false
	}
	for _, k := range e.SortedKeys() {
		if e.Fields[k].Matches(digest) {
			return k, true
		}
	}
	return "", false
}

// LedgerMatch is the first transaction whose metadata carries the digest.
type LedgerMatch struct {
	TxHash string        `json:"tx_hash"`
	Entry  MetadataEntry `json:"entry"`
	Key    string        `json:"key"`
	Page   int           `json:"page"`
}
