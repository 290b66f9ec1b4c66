package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// GobFormat はgob形式のモデルファイルの先頭に書き込まれる識別子です。
const GobFormat = "hgboost-gob"

// GobVersion は現在のgob形式のバージョンです。
const GobVersion = 1

// Header はモデル本体の前に書き込まれるメタデータです。
type Header struct {
	Format  string
	Version int
	Kind    string // 保存されたモデルの型名
}

// SaveModel はモデルをgob形式でファイルに保存する
//
//	err := model.SaveModel(ensemble, "ensemble", "model.gob")
func SaveModel(m interface{}, kind, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.NewModelError("SaveModel", "failed to create file", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.NewModelError("SaveModel", "failed to close file", cerr)
		}
	}()
	return SaveModelToWriter(m, kind, file)
}

// LoadModel はファイルからモデルを読み込む。m はポインタでなければならない。
func LoadModel(m interface{}, kind, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.NewModelError("LoadModel", "failed to open file", err)
	}
	defer file.Close()
	return LoadModelFromReader(m, kind, file)
}

// SaveModelToWriter はヘッダとモデルをio.Writerに書き込む
func SaveModelToWriter(m interface{}, kind string, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(Header{Format: GobFormat, Version: GobVersion, Kind: kind}); err != nil {
		return errors.NewModelError("SaveModel", "failed to encode header", err)
	}
	if err := encoder.Encode(m); err != nil {
		return errors.NewModelError("SaveModel", "failed to encode model", err)
	}
	return nil
}

// LoadModelFromReader はio.Readerからヘッダを検証してモデルを読み込む
func LoadModelFromReader(m interface{}, kind string, r io.Reader) error {
	decoder := gob.NewDecoder(r)

	var h Header
	if err := decoder.Decode(&h); err != nil {
		return errors.NewModelError("LoadModel", "failed to decode header", err)
	}
	if h.Format != GobFormat {
		return errors.NewModelError("LoadModel", "unknown format "+h.Format, nil)
	}
	if h.Version != GobVersion {
		return errors.NewModelError("LoadModel", "unsupported format version", errors.Newf("version %d", h.Version))
	}
	if kind != "" && h.Kind != kind {
		return errors.NewModelError("LoadModel", "model kind mismatch", errors.Newf("want %q, got %q", kind, h.Kind))
	}
	if err := decoder.Decode(m); err != nil {
		return errors.NewModelError("LoadModel", "failed to decode model", err)
	}
	return nil
}
