package block

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// BlockID представляет идентификатор типа блока
type BlockID uint16

// Константы ID блоков. AirBlockID никогда не хранится в чанке: пустота = отсутствие блока.
const (
	AirBlockID BlockID = iota // 0
	ChiseledStoneBlockID
	LogBlockID
	GrassBlockID
	DirtBlockID
)

// DefaultNames - порядок строк атласа текстур по умолчанию
var DefaultNames = []string{"chiseled_stone", "log", "grass", "dirt"}

var (
	// ErrMalformedGeometry возвращается при регистрации некорректной эталонной геометрии
	ErrMalformedGeometry = errors.New("malformed block geometry")
	// ErrDuplicateBlockType возвращается при повторной регистрации ID или имени
	ErrDuplicateBlockType = errors.New("duplicate block type")
)

// ReferenceGeometry - эталонная геометрия типа блока
type ReferenceGeometry struct {
	ID       BlockID
	Name     string
	Geometry Geometry
}

// Registry отображает тип блока в эталонную геометрию.
// Заполняется при загрузке и далее используется только на чтение.
type Registry struct {
	types map[BlockID]*ReferenceGeometry
	names map[string]BlockID
}

// NewRegistry создаёт пустой регистр
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[BlockID]*ReferenceGeometry),
		names: make(map[string]BlockID),
	}
}

// NewAtlasRegistry заполняет регистр кубами из атласа: одна строка тайлов на тип,
// шесть колонок на грани. Строка для i-го имени - (rows-1-i), как в исходной текстуре.
func NewAtlasRegistry(rows int, names ...string) (*Registry, error) {
	if rows < len(names) {
		return nil, fmt.Errorf("atlas has %d rows for %d block types: %w", rows, len(names), ErrMalformedGeometry)
	}

	r := NewRegistry()
	uvScale := [2]float32{1.0 / 6, 1.0 / float32(rows)}
	for i, name := range names {
		row := float32(rows - 1 - i)
		uvBase := [2]float32{0, row * uvScale[1]}
		if err := r.Register(BlockID(i+1), name, CubeGeometry(uvBase, uvScale, 1)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register добавляет тип блока в регистр
func (r *Registry) Register(id BlockID, name string, geometry Geometry) error {
	if id == AirBlockID {
		return fmt.Errorf("block id %d is reserved for air: %w", id, ErrMalformedGeometry)
	}
	if err := validateGeometry(geometry); err != nil {
		return fmt.Errorf("block %q: %w", name, err)
	}
	if _, exists := r.types[id]; exists {
		return fmt.Errorf("block id %d: %w", id, ErrDuplicateBlockType)
	}
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("block name %q: %w", name, ErrDuplicateBlockType)
	}

	r.types[id] = &ReferenceGeometry{ID: id, Name: name, Geometry: geometry}
	r.names[name] = id
	return nil
}

// Get возвращает эталонную геометрию для указанного ID
func (r *Registry) Get(id BlockID) (*ReferenceGeometry, bool) {
	ref, exists := r.types[id]
	return ref, exists
}

// Lookup возвращает ID типа по имени
func (r *Registry) Lookup(name string) (BlockID, bool) {
	id, exists := r.names[name]
	return id, exists
}

// IsValidBlockID проверяет, зарегистрирован ли тип
func (r *Registry) IsValidBlockID(id BlockID) bool {
	_, exists := r.types[id]
	return exists
}

// IDs возвращает зарегистрированные ID по возрастанию
func (r *Registry) IDs() []BlockID {
	ids := make([]BlockID, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len возвращает количество зарегистрированных типов
func (r *Registry) Len() int {
	return len(r.types)
}

func validateGeometry(g Geometry) error {
	if len(g) != FloatsPerCube {
		return fmt.Errorf("expected %d floats, got %d: %w", FloatsPerCube, len(g), ErrMalformedGeometry)
	}
	for i, v := range g {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite value at %d: %w", i, ErrMalformedGeometry)
		}
	}
	return nil
}
