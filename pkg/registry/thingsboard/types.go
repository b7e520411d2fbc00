/*
 * Copyright 2025 Heatmanager Cloud.
 *
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

package thingsboard

import (
	"github.com/google/uuid"
)

// EntityID is the registry's composite identifier: a UUID plus the entity
// type discriminator.
type EntityID struct {
	ID         uuid.UUID `json:"id"`
	EntityType string    `json:"entityType"`
}

// Asset represents a registry asset (a location/zone carrying desired
// temperature setpoints).
type Asset struct {
	ID   EntityID `json:"id"`
	Name string   `json:"name"`
	Type string   `json:"type"`
}

// Device represents a registry device as returned by the API.
type Device struct {
	ID             EntityID               `json:"id"`
	Name           string                 `json:"name"`
	Label          string                 `json:"label"`
	Type           string                 `json:"type"`
	AdditionalInfo map[string]interface{} `json:"additionalInfo"`
}

// loginRequest is the credential payload for /api/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse carries the JWT session token.
type loginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// assetPage is one page of the paginated customer asset listing.
type assetPage struct {
	Data          []Asset `json:"data"`
	TotalPages    int     `json:"totalPages"`
	TotalElements int     `json:"totalElements"`
	HasNext       bool    `json:"hasNext"`
}

// relation is one edge of the entity relation graph.
type relation struct {
	From EntityID `json:"from"`
	To   EntityID `json:"to"`
	Type string   `json:"type"`
}

// attribute is one element of the attribute listing. The registry returns
// attributes as a list of key/value pairs; some deployments front it with
// a proxy that flattens the list into a plain map, so both shapes are
// accepted by parseAttributes.
type attribute struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}
