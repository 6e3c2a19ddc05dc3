package assets

import (
	"embed"
	"io/fs"
)

const (
	CapacityDataFile = "capacity-data.json"
	JobDataFile      = "job-data.json"
)

//go:embed data/*.json
var embedded embed.FS

// FS 返回随程序打包的静态数据，文件位于根目录
func FS() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err)
	}
	return sub
}
