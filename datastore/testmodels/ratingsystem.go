/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package testmodels holds the entities shared by the driver and repository tests.
package testmodels

import (
	"math/big"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RatingSystem struct {

	// Timestamp when the rating system was created.
	// Format: date-time
	CreatedAt *strfmt.DateTime `bson:"CreatedAt"`

	// A description of the rating system.
	Description string `bson:"Description,omitempty"`

	// Unique identifier for the rating system.
	ID strfmt.ObjectId `bson:"_id"`

	// Name of the rating system.
	// Required: true
	Name string `bson:"Name"`

	// Rating a new player starts with.
	InitialRating *big.Float `bson:"InitialRating"`

	// site Url
	SiteURL string `bson:"SiteUrl,omitempty"`

	// Timestamp when the rating system was last updated.
	// Format: date-time
	UpdatedAt *strfmt.DateTime `bson:"UpdatedAt"`
}

// CollectionName places rating systems in their own collection.
func (RatingSystem) CollectionName() string { return "rating_systems" }

type Player struct {
	Id       primitive.ObjectID
	Name     string
	Club     string
	Rating   int
	Settings *PlayerSettings
}

type PlayerSettings struct {
	Public bool   `bson:"public"`
	Locale string `bson:"locale"`
}

type Match struct {
	ID      uuid.UUID
	Home    string
	Away    string
	Score   string
	Venue   Venue
	Started *strfmt.DateTime
}

type Venue struct {
	Name string `bson:"name"`
	City string `bson:"city"`
}

// Tournament uses a caller assigned key, so it is never generated.
type Tournament struct {
	Code   string `bson:"_id"`
	Season int
}
