// Package rxnorm löst freie Arzneimittelnamen über die RxNav-API in RxCUIs auf.
package rxnorm

// idGroupResponse repräsentiert die Antwort von rxcui.json.
type idGroupResponse struct {
	IDGroup struct {
		Name     string   `json:"name"`
		RxNormID []string `json:"rxnormId"`
	} `json:"idGroup"`
}

// approximateResponse repräsentiert die Antwort von approximateTerm.json.
type approximateResponse struct {
	ApproximateGroup struct {
		Candidate []struct {
			RxCUI string `json:"rxcui"`
			Score string `json:"score"`
			Rank  string `json:"rank"`
		} `json:"candidate"`
	} `json:"approximateGroup"`
}

// propertiesResponse repräsentiert die Antwort von rxcui/{id}/properties.json.
type propertiesResponse struct {
	Properties *struct {
		RxCUI   string `json:"rxcui"`
		Name    string `json:"name"`
		Synonym string `json:"synonym"`
		TTY     string `json:"tty"`
	} `json:"properties"`
}

// relatedResponse repräsentiert die Antwort von rxcui/{id}/related.json.
type relatedResponse struct {
	RelatedGroup struct {
		ConceptGroup []struct {
			TTY               string `json:"tty"`
			ConceptProperties []struct {
				RxCUI string `json:"rxcui"`
				Name  string `json:"name"`
				TTY   string `json:"tty"`
			} `json:"conceptProperties"`
		} `json:"conceptGroup"`
	} `json:"relatedGroup"`
}
