package catalog

// Strategy способ преобразования составного поля
type Strategy string

const (
	// StrategyJSON поле хранится локально как строка с JSON-документом
	StrategyJSON Strategy = "json"
)

// Field описание составного поля таблицы
type Field struct {
	Name     string   `mapstructure:"name" yaml:"name"`
	Strategy Strategy `mapstructure:"strategy" yaml:"strategy"`
}

// Table статическое описание таблицы для кодека и синхронизации
type Table struct {
	Name      string  `mapstructure:"name" yaml:"name"`
	Composite []Field `mapstructure:"composite" yaml:"composite"`
}

// CompositeField возвращает описание составного поля, если оно объявлено
func (t Table) CompositeField(name string) (Field, bool) {
	for _, f := range t.Composite {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
