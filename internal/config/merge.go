package config

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// merge combines documents left to right. Objects present in several
// documents are merged recursively; any other value is replaced, or reported
// as a conflict if conflictError is set and the values differ.
func merge(docs []map[string]any, path string, conflictError bool) (map[string]any, error) {
	result := make(map[string]any)
	for _, doc := range docs {
		for _, key := range slices.Sorted(maps.Keys(doc)) { // sorted for deterministic conflict errors
			value := doc[key]
			if existing, ok := result[key]; ok {
				existingMap, ok1 := existing.(map[string]any)
				valueMap, ok2 := value.(map[string]any)
				if ok1 && ok2 {
					var err error
					result[key], err = merge([]map[string]any{existingMap, valueMap}, path+"/"+key, conflictError)
					if err != nil {
						return nil, err
					}
					continue
				}

				if conflictError && !reflect.DeepEqual(existing, value) {
					return nil, fmt.Errorf("conflict for config path %s", path+"/"+key)
				}
			}
			result[key] = value
		}
	}
	return result, nil
}
