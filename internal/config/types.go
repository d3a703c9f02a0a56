package config

// Config представляет набор шаблонов интервью
type Config struct {
	Templates []Template `yaml:"templates"`
}

// Template представляет один шаблон интервью
type Template struct {
	ID              int      `yaml:"id"`
	Title           string   `yaml:"title"`
	Role            string   `yaml:"role"`
	Difficulty      string   `yaml:"difficulty"`
	Mode            string   `yaml:"mode"`
	Topics          []string `yaml:"topics"`
	DurationMinutes int      `yaml:"duration_minutes"`
}

// Методы для удобного доступа к конфигурации
func (c *Config) GetTemplate(id int) (Template, bool) {
	for _, t := range c.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

func (c *Config) GetTotalTemplates() int {
	return len(c.Templates)
}
