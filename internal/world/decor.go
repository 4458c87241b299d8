package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// DecorFloatsPerVertex - раскладка вершины в пакетном буфере: u v nx ny nz x y z ox oy oz
const DecorFloatsPerVertex = 11

// ErrEmptyDecorSource возвращается для источника декора без вершин
var ErrEmptyDecorSource = errors.New("decor source has no vertices")

// DecorVertex - вершина исходной модели декора
type DecorVertex struct {
	UV     mgl32.Vec2
	Normal mgl32.Vec3
	Pos    mgl32.Vec3
}

// DecorSource - исходная модель декора. Экземпляры группируются по имени источника.
type DecorSource struct {
	Name     string
	Vertices []DecorVertex
}

// Decor - экземпляр декоративной модели в мире (непрерывные координаты)
type Decor struct {
	Source *DecorSource
	Pos    mgl32.Vec3
	Rot    mgl32.Quat
	Scale  mgl32.Vec3

	buffer []float32
}

// NewDecor создаёт экземпляр и сразу рассчитывает его вершинный буфер
func NewDecor(src *DecorSource, pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3) (*Decor, error) {
	if src == nil || len(src.Vertices) == 0 {
		return nil, ErrEmptyDecorSource
	}
	d := &Decor{Source: src, Pos: pos, Rot: rot, Scale: scale}
	d.generate()
	return d, nil
}

// Transform возвращает матрицу модели T*R*S
func (d *Decor) Transform() mgl32.Mat4 {
	t := mgl32.Translate3D(d.Pos.X(), d.Pos.Y(), d.Pos.Z())
	r := d.Rot.Normalize().Mat4()
	s := mgl32.Scale3D(d.Scale.X(), d.Scale.Y(), d.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

// Buffer возвращает вершинный буфер экземпляра
func (d *Decor) Buffer() []float32 {
	return d.buffer
}

// VertexCount возвращает количество вершин экземпляра
func (d *Decor) VertexCount() int {
	return len(d.buffer) / DecorFloatsPerVertex
}

// generate трансформирует вершины источника; нормали идут через обратно-транспонированную матрицу
func (d *Decor) generate() {
	transform := d.Transform()
	normalMatrix := transform.Inv().Transpose()

	buf := make([]float32, 0, len(d.Source.Vertices)*DecorFloatsPerVertex)
	for _, v := range d.Source.Vertices {
		n := normalMatrix.Mul4x1(v.Normal.Vec4(0)).Vec3()
		if n.Len() > 0 {
			n = n.Normalize()
		}
		p := transform.Mul4x1(v.Pos.Vec4(1)).Vec3()

		buf = append(buf,
			v.UV.X(), v.UV.Y(),
			n.X(), n.Y(), n.Z(),
			p.X(), p.Y(), p.Z(),
			d.Pos.X(), d.Pos.Y(), d.Pos.Z(),
		)
	}
	d.buffer = buf
}

// DecorGroup - пакетный буфер всех экземпляров одного источника в чанке
type DecorGroup struct {
	Source string
	Buffer []float32
	Count  int // Количество экземпляров
}

// VertexCount возвращает количество вершин в пакете
func (g *DecorGroup) VertexCount() int {
	return len(g.Buffer) / DecorFloatsPerVertex
}

// AddDecor добавляет экземпляр в группу его источника. Пакеты пересобираются в RebuildDecor.
func (c *Chunk) AddDecor(d *Decor) error {
	if d == nil || d.Source == nil {
		return fmt.Errorf("chunk %v: %w", c.coord, ErrEmptyDecorSource)
	}
	c.decor[d.Source.Name] = append(c.decor[d.Source.Name], d)
	return nil
}

// RebuildDecor пересобирает пакетные буферы всех групп
func (c *Chunk) RebuildDecor() {
	groups := make(map[string]*DecorGroup, len(c.decor))
	for name, items := range c.decor {
		total := 0
		for _, d := range items {
			total += len(d.buffer)
		}
		g := &DecorGroup{Source: name, Buffer: make([]float32, 0, total), Count: len(items)}
		for _, d := range items {
			g.Buffer = append(g.Buffer, d.buffer...)
		}
		groups[name] = g
	}
	c.decorBuffers = groups
}

// DecorGroups возвращает собранные пакеты, отсортированные по имени источника
func (c *Chunk) DecorGroups() []*DecorGroup {
	out := make([]*DecorGroup, 0, len(c.decorBuffers))
	for _, g := range c.decorBuffers {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}
