package probe

// Service is one monitored endpoint as configured by the operator.
//
// When both Keyword and StatusCode are set, Keyword wins.
type Service struct {
	Name       string `yaml:"name" json:"name"`
	URL        string `yaml:"url" json:"url"`
	Keyword    string `yaml:"keyword,omitempty" json:"keyword,omitempty"`
	StatusCode int    `yaml:"status_code,omitempty" json:"status_code,omitempty"`
}

// Mode reports which check the probe will run for s.
func (s Service) Mode() string {
	switch {
	case s.Keyword != "":
		return "keyword"
	case s.StatusCode != 0:
		return "status_code"
	default:
		return "reachable"
	}
}
