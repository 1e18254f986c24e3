package model

type ImageType string

const (
	ImageTypeTechnicalDiagram      ImageType = "technical_diagram"
	ImageTypePhotograph            ImageType = "photograph"
	ImageTypeTableChart            ImageType = "table_chart"
	ImageTypeSafetyWarning         ImageType = "safety_warning"
	ImageTypePartsDiagram          ImageType = "parts_diagram"
	ImageTypeProcedureIllustration ImageType = "procedure_illustration"
	ImageTypeGeneral               ImageType = "general"
)

func (t ImageType) IsValid() bool {
	switch t {
	case ImageTypeTechnicalDiagram, ImageTypePhotograph, ImageTypeTableChart,
		ImageTypeSafetyWarning, ImageTypePartsDiagram, ImageTypeProcedureIllustration,
		ImageTypeGeneral:
		return true
	}
	return false
}

// ImageRecord describes one extracted image. A page can hold several records,
// so (Source, PageNumber) is a reference, not an identity; ID is.
type ImageRecord struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	PageNumber      int       `json:"page_number"`
	ImageType       ImageType `json:"image_type"`
	ComplexityLevel int       `json:"complexity_level"`
	OCRText         string    `json:"ocr_text"`
	Description     string    `json:"description,omitempty"`
	StorageRef      string    `json:"storage_ref"`
	CreatedAt       int64     `json:"created_at"`
}
