package domain

// Preferences holds global appearance settings. Single instance, lives as
// long as the settings store does.
type Preferences struct {
	AppName      string  `json:"appName,omitempty"`
	Logo         string  `json:"logo,omitempty"`
	Accent       string  `json:"accent"`
	SideOpacity  float64 `json:"sideOpacity,omitempty"`
	AutoCollapse bool    `json:"autoCollapse,omitempty"`
}

// DefaultPreferences returns the stock theme.
func DefaultPreferences() Preferences {
	return Preferences{Accent: "#007cff", SideOpacity: 0.85}
}

// Merge overlays non-zero fields of p onto the receiver. AutoCollapse is a
// plain boolean and always taken from p.
func (prefs *Preferences) Merge(p Preferences) {
	if p.AppName != "" {
		prefs.AppName = p.AppName
	}
	if p.Logo != "" {
		prefs.Logo = p.Logo
	}
	if p.Accent != "" {
		prefs.Accent = p.Accent
	}
	if p.SideOpacity != 0 {
		prefs.SideOpacity = p.SideOpacity
	}
	prefs.AutoCollapse = p.AutoCollapse
}
