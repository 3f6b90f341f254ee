package rmf

import (
	"bytes"
	"encoding/binary"
	"math"
)

// chunkWriter builds RMF byte streams for tests.
type chunkWriter struct {
	buf     bytes.Buffer
	strings []string
}

func (w *chunkWriter) u8(vs ...uint8) {
	w.buf.Write(vs)
}

func (w *chunkWriter) i32(vs ...int32) {
	for _, v := range vs {
		_ = binary.Write(&w.buf, binary.LittleEndian, v)
	}
}

func (w *chunkWriter) u16(vs ...uint16) {
	for _, v := range vs {
		_ = binary.Write(&w.buf, binary.LittleEndian, v)
	}
}

func (w *chunkWriter) u32(vs ...uint32) {
	for _, v := range vs {
		_ = binary.Write(&w.buf, binary.LittleEndian, v)
	}
}

func (w *chunkWriter) f32(vs ...float32) {
	for _, v := range vs {
		_ = binary.Write(&w.buf, binary.LittleEndian, math.Float32bits(v))
	}
}

func (w *chunkWriter) code(c string) {
	w.buf.WriteString(c)
}

// ref interns s and writes its string table index; "" is written as -1.
func (w *chunkWriter) ref(s string) {
	w.i32(w.intern(s))
}

func (w *chunkWriter) intern(s string) int32 {
	if s == "" {
		return -1
	}
	for i, existing := range w.strings {
		if existing == s {
			return int32(i)
		}
	}
	w.strings = append(w.strings, s)
	return int32(len(w.strings) - 1)
}

func (w *chunkWriter) identity3x4() {
	w.f32(1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0)
}

// scalar writes a scalar block and patches its absolute end address once
// body has written the payload.
func (w *chunkWriter) scalar(code string, body func()) {
	w.code(code)
	at := w.buf.Len()
	w.i32(0)
	if body != nil {
		body()
	}
	binary.LittleEndian.PutUint32(w.buf.Bytes()[at:], uint32(w.buf.Len()))
}

// list writes a typed list block; each element writes one complete block.
func (w *chunkWriter) list(elem string, elems ...func()) {
	w.code(listCode)
	w.code(elem)
	w.i32(int32(len(elems)))
	for _, e := range elems {
		e()
	}
}

// stringTable writes the STRS block holding every interned string.
func (w *chunkWriter) stringTable() {
	w.scalar("STRS", func() {
		w.i32(int32(len(w.strings)))
		for _, s := range w.strings {
			w.i32(int32(len(s)))
			w.buf.WriteString(s)
		}
	})
}

// scene writes a root block named name whose property blocks are written by
// props. The string table is appended last so props may intern freely.
func (w *chunkWriter) scene(name string, props func()) []byte {
	w.scalar(Magic, func() {
		w.u8(1, 2, 3, 4)
		w.f32(100)
		w.f32(1, 0, 0, 0, 1, 0, 0, 0, 1)
		w.ref(name)
		if props != nil {
			props()
		}
		w.stringTable()
	})
	return w.buf.Bytes()
}

func (w *chunkWriter) attr(body func()) {
	w.scalar("ATTR", body)
}

// triangleScene writes one model with one region and permutation, and a
// single three-vertex mesh using a triangle list and float positions.
func triangleScene(positions [9]float32) []byte {
	w := &chunkWriter{}
	return w.scene("triangle", func() {
		w.scalar("NODE", func() {
			w.attr(func() { w.ref("root") })
			w.list("OBJE", func() {
				w.scalar(codePlacement, func() {
					w.attr(func() {
						w.ref("triangle_placement")
						w.i32(0)
						w.identity3x4()
					})
					w.scalar(codeModelRef, func() { w.i32(0) })
				})
			})
		})
		w.list("MODL", func() {
			w.scalar("MODL", func() {
				w.attr(func() {
					w.ref("triangle")
					w.i32(0)
				})
				w.list("REGN", func() {
					w.scalar("REGN", func() {
						w.attr(func() { w.ref("body") })
						w.list("PERM", func() {
							w.scalar("PERM", func() {
								w.attr(func() {
									w.ref("default")
									w.u8(0)
									w.i32(0, 1)
									w.identity3x4()
								})
							})
						})
					})
				})
				w.list("MESH", func() {
					w.scalar("MESH", func() {
						w.attr(func() {
							w.i32(0, 0, -1)
							w.identity3x4()
							w.identity3x4()
						})
						w.list("MSEG", func() {
							w.scalar("MSEG", func() {
								w.attr(func() { w.i32(0, 3, -1) })
							})
						})
					})
				})
			})
		})
		w.list("VECD", func() {
			w.scalar("VECD", func() {
				w.u8(0, 4)
				w.i32(3)
				w.u8(0, 32, 0, 32, 0, 32)
			})
		})
		w.list("VBUF", func() {
			w.scalar("VBUF", func() {
				w.attr(func() { w.i32(3) })
				w.scalar(channelPosition, func() {
					w.i32(0)
					w.f32(positions[:]...)
				})
			})
		})
		w.list("IBUF", func() {
			w.scalar("IBUF", func() {
				w.u8(uint8(LayoutTriangleList), 2)
				w.i32(3)
				w.u16(0, 1, 2)
			})
		})
	})
}
