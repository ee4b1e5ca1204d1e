package httpapi

import (
	"time"

	"github.com/arawak/thankyou/internal/catalog"
)

type HealthStatus string

const Ok HealthStatus = "ok"

type Health struct {
	Status HealthStatus `json:"status"`
}

type Error struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details *map[string]any `json:"details,omitempty"`
}

type FontOption struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Generic string `json:"generic"`
}

type Options struct {
	Fonts  []FontOption `json:"fonts"`
	Colors []string     `json:"colors"`
}

type Session struct {
	Id        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type QueryRequest struct {
	Query string `json:"query"`
}

type ImagesState struct {
	Mode       string             `json:"mode"`
	Query      string             `json:"query"`
	Input      string             `json:"input"`
	Loading    bool               `json:"loading"`
	Error      *string            `json:"error,omitempty"`
	Images     []catalog.Image    `json:"images"`
	Pagination catalog.Pagination `json:"pagination"`
}

type DesignUpdate struct {
	ImageId *string `json:"imageId,omitempty"`
	Name    *string `json:"name,omitempty"`
	Font    *string `json:"font,omitempty"`
	Color   *string `json:"color,omitempty"`
}

type DesignState struct {
	HasDesign bool    `json:"hasDesign"`
	Prompt    *string `json:"prompt,omitempty"`
	ImageId   *string `json:"imageId,omitempty"`
	Name      string  `json:"name"`
	Font      string  `json:"font"`
	Color     string  `json:"color"`
	Rendering bool    `json:"rendering"`
	Ready     bool    `json:"ready"`
	Error     *string `json:"error,omitempty"`
}
