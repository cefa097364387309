package confluence

// Article is a knowledge-base page as seen by the pipeline. Content holds
// the page body in storage format and is empty until fetched.
type Article struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Space   string `json:"space,omitempty"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
	Version int    `json:"version,omitempty"`
}

// contentSearchResponse wraps GET /wiki/rest/api/content/search.
type contentSearchResponse struct {
	Results []contentResult `json:"results"`
}

// contentResult is one CQL hit (REST v1 content shape).
type contentResult struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Space *struct {
		Key string `json:"key"`
	} `json:"space,omitempty"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

// Page represents a Confluence page from the REST API v2.
type Page struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Status  string      `json:"status"`
	SpaceID string      `json:"spaceId"`
	Version PageVersion `json:"version"`
	Body    PageBody    `json:"body"`
	Links   PageLinks   `json:"_links"`
}

// PageVersion contains version info for a Confluence page.
type PageVersion struct {
	Number    int    `json:"number"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// PageBody contains the page body in storage format.
type PageBody struct {
	Storage *BodyValue `json:"storage,omitempty"`
}

// BodyValue wraps a representation and its value.
type BodyValue struct {
	Representation string `json:"representation"`
	Value          string `json:"value"`
}

// PageLinks contains the _links object from the Confluence API.
type PageLinks struct {
	WebUI string `json:"webui"`
	Base  string `json:"base"`
}

// Space represents a Confluence space (minimal fields).
type Space struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// spacesResponse wraps the results array from GET /wiki/api/v2/spaces.
type spacesResponse struct {
	Results []Space `json:"results"`
}

// createPayload is the body for POST /wiki/api/v2/pages.
type createPayload struct {
	SpaceID  string    `json:"spaceId"`
	Status   string    `json:"status"`
	Title    string    `json:"title"`
	ParentID string    `json:"parentId,omitempty"`
	Body     BodyValue `json:"body"`
}

// updatePayload is the body for PUT /wiki/api/v2/pages/{id}.
type updatePayload struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"`
	Title   string      `json:"title"`
	Body    BodyValue   `json:"body"`
	Version PageVersion `json:"version"`
}
