package models

import "encoding/json"

// TemplateRequest is the body of template load and save calls. Alerts holds
// a JSON-encoded flat alert list.
type TemplateRequest struct {
	Template string `json:"template" binding:"required"`
	Alerts   string `json:"alerts"`
}

// LoadResponse is returned by a successful template load: the nested tree
// and its flattened mirror.
type LoadResponse struct {
	Tree   *AlertNode  `json:"tree"`
	Alerts []FlatAlert `json:"alerts"`
}

type SaveResponse struct {
	Template string `json:"template"`
	Saved    int    `json:"saved"`
}

type AlertTypesResponse struct {
	AlertTypes []AlertTypeRecord `json:"alert_types"`
}

type AlertsResponse struct {
	Alerts []*AlertNode `json:"alerts"`
}

type TemplatesResponse struct {
	Templates []string `json:"templates"`
}

// EncodeAlerts encodes a flat list for a TemplateRequest. A nil list encodes
// as an empty array.
func EncodeAlerts(alerts []FlatAlert) (string, error) {
	if alerts == nil {
		alerts = []FlatAlert{}
	}
	b, err := json.Marshal(alerts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeAlerts is the inverse of EncodeAlerts. An empty string decodes to an
// empty list.
func DecodeAlerts(s string) ([]FlatAlert, error) {
	alerts := []FlatAlert{}
	if s == "" {
		return alerts, nil
	}
	if err := json.Unmarshal([]byte(s), &alerts); err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []FlatAlert{}
	}
	return alerts, nil
}
