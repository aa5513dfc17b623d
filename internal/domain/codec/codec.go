// Package codec преобразует составные поля записей между локальным
// представлением (JSON в строковых колонках) и удаленным (нативный JSON).
package codec

import (
	"encoding/json"
	"fmt"

	"offsync/internal/domain/catalog"
	"offsync/internal/model"
)

// Options настройки кодека
type Options struct {
	// StringComposite включается, когда локальное хранилище требует строковые колонки
	StringComposite bool
}

// FieldError ошибка декодирования отдельного поля. Запись при этом не отбрасывается.
type FieldError struct {
	Table string
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Table, e.Field, e.Err)
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// Codec преобразователь записей по статическому описанию таблиц
type Codec struct {
	catalog *catalog.Catalog
	opts    Options
}

// New создает кодек для каталога
func New(c *catalog.Catalog, opts Options) *Codec {
	return &Codec{catalog: c, opts: opts}
}

// ToRemote готовит локальную запись к отправке. Структурированные составные
// поля сериализуются в строку только при StringComposite.
func (c *Codec) ToRemote(table string, local model.Entity) (model.Entity, error) {
	t, err := c.catalog.Lookup(table)
	if err != nil {
		return nil, err
	}

	out := local.Clone()
	if !c.opts.StringComposite {
		return out, nil
	}

	for _, f := range t.Composite {
		v, ok := out[f.Name]
		if !ok || v == nil {
			continue
		}
		if _, isString := v.(string); isString {
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", table, f.Name, err)
		}
		out[f.Name] = string(encoded)
	}

	return out, nil
}

// ToLocal декодирует строковые составные поля в структуры. Уже
// структурированные значения не трогаются, а нераспознанные строки остаются
// как есть и возвращаются в списке ошибок полей.
func (c *Codec) ToLocal(table string, remote model.Entity) (model.Entity, []FieldError) {
	out := remote.Clone()

	t, err := c.catalog.Lookup(table)
	if err != nil {
		return out, []FieldError{{Table: table, Err: err}}
	}

	var errs []FieldError
	for _, f := range t.Composite {
		raw, ok := out[f.Name].(string)
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			errs = append(errs, FieldError{Table: table, Field: f.Name, Err: err})
			continue
		}
		out[f.Name] = decoded
	}

	return out, errs
}

func (c *Codec) Catalog() *catalog.Catalog {
	return c.catalog
}
