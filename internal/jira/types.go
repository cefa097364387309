package jira

// ResolvedIssue is a search hit for a recently resolved ticket.
type ResolvedIssue struct {
	Key            string
	ResolutionDate string
}

// searchResponse wraps GET /rest/api/3/search/jql.
type searchResponse struct {
	Issues []struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Fields struct {
			ResolutionDate string `json:"resolutiondate"`
		} `json:"fields"`
	} `json:"issues"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// User represents a JIRA user (used by the connectivity probe).
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
}
