package catalog

import "fmt"

// Catalog упорядоченный список таблиц: родительские таблицы идут раньше дочерних.
// Порядок задается конфигурацией и не вычисляется во время работы.
type Catalog struct {
	tables []Table
	index  map[string]int
}

// New создает каталог, сохраняя порядок таблиц
func New(tables ...Table) (*Catalog, error) {
	if len(tables) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		tables: make([]Table, 0, len(tables)),
		index:  make(map[string]int, len(tables)),
	}
	for _, t := range tables {
		if t.Name == "" {
			return nil, ErrEmptyTableName
		}
		if _, ok := c.index[t.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, t.Name)
		}
		fields := make([]Field, len(t.Composite))
		for i, f := range t.Composite {
			if f.Strategy == "" {
				f.Strategy = StrategyJSON
			}
			if f.Strategy != StrategyJSON {
				return nil, fmt.Errorf("%w: %s.%s (%s)", ErrBadStrategy, t.Name, f.Name, f.Strategy)
			}
			fields[i] = f
		}
		t.Composite = fields
		c.index[t.Name] = len(c.tables)
		c.tables = append(c.tables, t)
	}

	return c, nil
}

// MustNew как New, но паникует при ошибке
func MustNew(tables ...Table) *Catalog {
	c, err := New(tables...)
	if err != nil {
		panic(err)
	}
	return c
}

// Names возвращает имена таблиц в порядке зависимостей
func (c *Catalog) Names() []string {
	names := make([]string, len(c.tables))
	for i, t := range c.tables {
		names[i] = t.Name
	}
	return names
}

// Reversed возвращает имена таблиц в обратном порядке (дочерние раньше родительских)
func (c *Catalog) Reversed() []string {
	names := make([]string, len(c.tables))
	for i, t := range c.tables {
		names[len(c.tables)-1-i] = t.Name
	}
	return names
}

// Tables возвращает копию описаний таблиц
func (c *Catalog) Tables() []Table {
	out := make([]Table, len(c.tables))
	copy(out, c.tables)
	return out
}

// Lookup ищет таблицу по имени
func (c *Catalog) Lookup(name string) (Table, error) {
	i, ok := c.index[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return c.tables[i], nil
}

func (c *Catalog) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Index возвращает позицию таблицы в каталоге или -1
func (c *Catalog) Index(name string) int {
	i, ok := c.index[name]
	if !ok {
		return -1
	}
	return i
}

func (c *Catalog) Len() int {
	return len(c.tables)
}
