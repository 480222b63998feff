package slice

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/royteeuwen/slice/resource"
)

// ---------------------------------------------------------------------------
// Generic helpers
// ---------------------------------------------------------------------------

// Get builds the model of type T anchored at path:
//
//	page, err := slice.Get[*Page](provider, "/content/home")
func Get[T any](p *ModelProvider, path string) (T, error) {
	key := KeyOf[T]()
	val, err := p.Get(key, path)
	if err != nil {
		var zero T
		return zero, err
	}
	return convert[T](key, val)
}

// GetFromResource builds the model of type T anchored at res.
func GetFromResource[T any](p *ModelProvider, res resource.Resource) (T, error) {
	key := KeyOf[T]()
	val, err := p.GetFromResource(key, res)
	if err != nil {
		var zero T
		return zero, err
	}
	return convert[T](key, val)
}

// GetList builds one T per path, preserving order.
func GetList[T any](p *ModelProvider, paths []string) ([]T, error) {
	key := KeyOf[T]()
	vals, err := p.GetList(key, paths)
	if err != nil {
		return nil, err
	}
	return convertAll[T](key, vals)
}

// GetListSeq builds one T per path of the sequence, preserving order.
func GetListSeq[T any](p *ModelProvider, paths iter.Seq[string]) ([]T, error) {
	key := KeyOf[T]()
	vals, err := p.GetListSeq(key, paths)
	if err != nil {
		return nil, err
	}
	return convertAll[T](key, vals)
}

// GetChildModels builds one T per child of the resource at parentPath. A
// relative parentPath is taken relative to the model being built:
//
//	teasers, err := slice.GetChildModels[*Teaser](provider, "teasers")
func GetChildModels[T any](p *ModelProvider, parentPath string) ([]T, error) {
	key := KeyOf[T]()
	vals, err := p.GetChildModels(key, parentPath)
	if err != nil {
		return nil, err
	}
	return convertAll[T](key, vals)
}

// GetChildModelsFromResource builds one T per child of res.
func GetChildModelsFromResource[T any](p *ModelProvider, res resource.Resource) ([]T, error) {
	key := KeyOf[T]()
	vals, err := p.GetChildModelsFromResource(key, res)
	if err != nil {
		return nil, err
	}
	return convertAll[T](key, vals)
}

func convert[T any](key Key, val reflect.Value) (T, error) {
	out, ok := valueAs[T](val)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cannot convert %s to %s", val.Type(), key.Type)
	}
	return out, nil
}

func convertAll[T any](key Key, vals []reflect.Value) ([]T, error) {
	out := make([]T, 0, len(vals))
	for _, val := range vals {
		v, err := convert[T](key, val)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
