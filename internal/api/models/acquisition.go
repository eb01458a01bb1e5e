package models

// AcquisitionRequest is the API representation of a data acquisition request.
type AcquisitionRequest struct {
	ID            string `json:"id"`
	OrgUUID       string `json:"orgUUID"`
	Title         string `json:"title"`
	PublicRequest bool   `json:"publicRequest"`
	Source        string `json:"source"`
	Category      string `json:"category"`
	State         string `json:"state"`
}

// AcquisitionRequestCreate is the body of POST /rest/das/requests.
type AcquisitionRequestCreate struct {
	Title         string `json:"title"`
	OrgUUID       string `json:"orgUUID"`
	PublicRequest bool   `json:"publicRequest"`
	Source        string `json:"source"`
	Category      string `json:"category"`
}

// StateUpdate is the body of PUT /rest/das/requests/{requestId}/state.
type StateUpdate struct {
	State string `json:"state"`
}

// CallbackReport is the body posted by the downloader and the metadata parser.
type CallbackReport struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
