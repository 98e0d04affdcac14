package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/kirillkom/mediscan/internal/core/domain"
)

const extractionPrompt = `Analyze this medicine image and extract the following information in JSON format:
{
  "medicineName": "exact medicine name",
  "activeIngredient": "main active ingredient",
  "strength": "dosage strength",
  "form": "tablet/capsule/syrup/etc",
  "manufacturer": "company name if visible",
  "color": "medicine color",
  "shape": "shape description",
  "markings": "any text or numbers on the medicine",
  "packaging": "blister pack/bottle/etc",
  "confidence": "confidence level 0-100"
}

Focus on extracting text from labels, identifying the medicine form, and noting visual characteristics. Be precise and only include information you can clearly see.`

func buildSummaryPrompt(attrs domain.ExtractedAttributes, label domain.LabelRecord) string {
	attrsJSON, _ := json.Marshal(attrs)
	labelText := "No FDA data available"
	if len(label) > 0 {
		labelText = string(label)
	}

	return fmt.Sprintf(`Based on the following medicine information, create a comprehensive, human-friendly summary in JSON format:

Extracted from image: %s
FDA Data: %s

Generate this exact JSON structure:
{
  "name": "Medicine name",
  "brand": "Brand name if available",
  "activeIngredient": "Active ingredient",
  "strength": "Dosage strength",
  "form": "Tablet/Capsule/etc",
  "description": "What this medicine is and what it treats (2-3 sentences)",
  "uses": ["Primary use", "Secondary use"],
  "dosageInstructions": "How to take this medicine",
  "sideEffects": {
    "common": ["side effect 1", "side effect 2"],
    "serious": ["serious side effect 1"],
    "frequencies": {
      "common": 70,
      "uncommon": 20,
      "rare": 10
    }
  },
  "warnings": ["Important warning 1", "Important warning 2"],
  "manufacturer": "Company name",
  "fdaStatus": "Approved/Over-the-counter/etc",
  "alternatives": [
    {
      "name": "Alternative medicine name",
      "activeIngredient": "Active ingredient",
      "reason": "Why it's an alternative"
    }
  ]
}

Make the language simple and easy to understand for non-medical people. If FDA data is not available, use general knowledge about the identified medicine.`, attrsJSON, labelText)
}
