package block

import (
	"github.com/annel0/voxel-world/internal/vec"
)

// Раскладка вершины: x y z u v nx ny nz
const (
	FloatsPerVertex = 8
	VerticesPerFace = 6
	FaceCount       = 6
	FloatsPerFace   = FloatsPerVertex * VerticesPerFace
	FloatsPerCube   = FloatsPerFace * FaceCount

	// uvBias отодвигает UV от краёв тайла, чтобы не захватывать соседние тайлы атласа
	uvBias = 0.00001
)

// Face - индекс грани куба в эталонной геометрии
type Face int

const (
	FaceFront  Face = iota // +z
	FaceBack               // -z
	FaceRight              // +x
	FaceLeft               // -x
	FaceTop                // +y
	FaceBottom             // -y
)

// FaceMask - набор видимых граней, бит i соответствует Face(i)
type FaceMask uint8

// AllFaces - все шесть граней видимы
const AllFaces FaceMask = 1<<FaceCount - 1

// Has проверяет, установлена ли грань
func (m FaceMask) Has(f Face) bool {
	return m&(1<<uint(f)) != 0
}

// With возвращает маску с добавленной гранью
func (m FaceMask) With(f Face) FaceMask {
	return m | 1<<uint(f)
}

// Count возвращает количество видимых граней
func (m FaceMask) Count() int {
	n := 0
	for f := Face(0); f < FaceCount; f++ {
		if m.Has(f) {
			n++
		}
	}
	return n
}

// Geometry - плоский буфер вершин: FaceCount граней по VerticesPerFace вершин
type Geometry []float32

// pane описывает одну грань куба
type pane struct {
	base   [3]float32
	extent [3]float32 // ровно одна компонента равна нулю
	normal [3]float32
	column int // колонка тайла в строке атласа
	flip   bool
}

// CubeGeometry генерирует UV-размеченный куб со стороной scale.
// Колонки атласа: 0 - верх, 1 - низ, 2 - перед, 3 - зад, 4 - право, 5 - лево.
// Ось Y всегда вторая в UV, поэтому "верх" текстуры совпадает с верхом мира.
func CubeGeometry(uvBase, uvScale [2]float32, scale float32) Geometry {
	uvBase = [2]float32{uvBase[0] + uvBias, uvBase[1] + uvBias}
	uvScale = [2]float32{uvScale[0] - uvBias*2, uvScale[1] - uvBias*2}

	s := scale
	panes := [FaceCount]pane{
		FaceFront:  {base: [3]float32{0, 0, s}, extent: [3]float32{s, s, 0}, normal: [3]float32{0, 0, 1}, column: 2, flip: true},
		FaceBack:   {base: [3]float32{0, 0, 0}, extent: [3]float32{s, s, 0}, normal: [3]float32{0, 0, -1}, column: 3},
		FaceRight:  {base: [3]float32{s, 0, 0}, extent: [3]float32{0, s, s}, normal: [3]float32{1, 0, 0}, column: 4, flip: true},
		FaceLeft:   {base: [3]float32{0, 0, 0}, extent: [3]float32{0, s, s}, normal: [3]float32{-1, 0, 0}, column: 5},
		FaceTop:    {base: [3]float32{0, s, 0}, extent: [3]float32{s, 0, s}, normal: [3]float32{0, 1, 0}, column: 0, flip: true},
		FaceBottom: {base: [3]float32{0, 0, 0}, extent: [3]float32{s, 0, s}, normal: [3]float32{0, -1, 0}, column: 1},
	}

	out := make(Geometry, 0, FloatsPerCube)
	for _, p := range panes {
		tileBase := [2]float32{uvBase[0] + uvScale[0]*float32(p.column), uvBase[1]}
		out = append(out, p.vertices(tileBase, uvScale)...)
	}
	return out
}

// vertices возвращает два треугольника грани
func (p pane) vertices(uvBase, uvScale [2]float32) []float32 {
	// смещения (x, y, z, u, v) вдоль двух сторон грани
	var a, b [5]float32
	switch {
	case p.extent[0] == 0:
		a = [5]float32{0, 0, p.extent[2], uvScale[0], 0}
		b = [5]float32{0, p.extent[1], 0, 0, uvScale[1]}
	case p.extent[1] == 0:
		a = [5]float32{p.extent[0], 0, 0, uvScale[0], 0}
		b = [5]float32{0, 0, p.extent[2], 0, uvScale[1]}
	default:
		a = [5]float32{0, p.extent[1], 0, 0, uvScale[1]}
		b = [5]float32{p.extent[0], 0, 0, uvScale[0], 0}
	}
	if p.flip {
		a, b = b, a
	}

	var zero [5]float32
	ab := [5]float32{}
	for i := range ab {
		ab[i] = a[i] + b[i]
	}

	// низ-лево, низ-право, верх-лево / верх-право, верх-лево, низ-право
	corners := [VerticesPerFace][5]float32{zero, a, b, ab, b, a}
	out := make([]float32, 0, FloatsPerFace)
	for _, c := range corners {
		out = append(out,
			p.base[0]+c[0], p.base[1]+c[1], p.base[2]+c[2],
			uvBase[0]+c[3], uvBase[1]+c[4],
			p.normal[0], p.normal[1], p.normal[2],
		)
	}
	return out
}

// Localize возвращает вершины видимых граней, сдвинутые на локальную позицию внутри чанка
func (g Geometry) Localize(offset vec.Vec3, faces FaceMask) []float32 {
	out := make([]float32, 0, faces.Count()*FloatsPerFace)
	ox, oy, oz := float32(offset.X), float32(offset.Y), float32(offset.Z)

	for f := Face(0); f < FaceCount; f++ {
		if !faces.Has(f) {
			continue
		}
		face := g[int(f)*FloatsPerFace : int(f+1)*FloatsPerFace]
		for i := 0; i < len(face); i += FloatsPerVertex {
			out = append(out, face[i]+ox, face[i+1]+oy, face[i+2]+oz)
			out = append(out, face[i+3:i+FloatsPerVertex]...)
		}
	}
	return out
}
