// Package gpu wraps the GPU texture resources backing the resident tile
// working set.
//
// Textures are created through the host application's texture factory
// (gpucontext.TextureCreator); tilemap never creates a GPU device of its
// own. When no factory is attached, textures are logical: all bookkeeping
// (dimensions, byte sizes, upload counts, release state) behaves normally
// but no device memory is touched. Logical mode is what the test suite and
// headless hosts run on.
package gpu
