package scene

// File is the on-disk scene description. References between tables are by
// name; they are resolved to indices when the scene is built.
type File struct {
	Name      string         `toml:"name"`
	Images    []ImageFile    `toml:"images"`
	Textures  []TextureFile  `toml:"textures"`
	Materials []MaterialFile `toml:"materials"`
}

type ImageFile struct {
	Name string `toml:"name"`
	// asset name, relative to the asset directory
	Path string `toml:"path"`
}

type TextureFile struct {
	Name string `toml:"name"`
	// name of an entry of the images table, optional
	Image string `toml:"image"`
	// asset name of a .tmip chain, optional
	Compressed string `toml:"compressed"`
	MinFilter  string `toml:"min_filter"`
	MagFilter  string `toml:"mag_filter"`
	RepeatU    string `toml:"repeat_u"`
	RepeatV    string `toml:"repeat_v"`
}

type MaterialFile struct {
	Name string `toml:"name"`
	// slot (diffuse, normal, ...) to texture name
	Textures map[string]string `toml:"textures"`
}
