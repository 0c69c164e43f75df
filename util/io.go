package util

import (
	"encoding/csv"
	"io"
	"os"
	"reflect"
	"strconv"
)

//**********************************************************
// csv io
//**********************************************************

// Iterates the rows of a csv file as values of T. Columns are matched
// to struct fields by the "csv" tag; untagged or missing columns are
// skipped.
func ReadCSVFromFile[T any](filename string, delimiter rune) func(yield func(T) bool) {
	return func(yield func(T) bool) {
		file, err := os.Open(filename)
		if err != nil {
			panic(err)
		}
		defer file.Close()

		reader := csv.NewReader(file)
		reader.Comma = delimiter
		header, err := reader.Read()
		if err != nil {
			panic(err)
		}
		name_column_mapping := NewDict[string, int](10)
		for i, name := range header {
			name_column_mapping[name] = i
		}

		var val T
		typ := reflect.TypeOf(val)
		fields := _TaggedFields(typ, name_column_mapping)

		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			} else if err != nil {
				continue
			}
			t := reflect.New(typ).Elem()
			for _, field := range fields {
				index := field.A
				column := field.B
				kind := field.C
				value := record[column]
				if value == "" {
					continue
				}
				f := t.Field(index)
				switch kind {
				case reflect.Bool:
					num, _ := strconv.ParseBool(value)
					f.SetBool(num)
				case reflect.Int:
					num, _ := strconv.ParseInt(value, 10, 64)
					f.SetInt(num)
				case reflect.Uint:
					num, _ := strconv.ParseUint(value, 10, 64)
					f.SetUint(num)
				case reflect.Float64:
					num, _ := strconv.ParseFloat(value, 64)
					f.SetFloat(num)
				case reflect.String:
					f.SetString(value)
				}
			}
			value := t.Interface().(T)
			if !yield(value) {
				break
			}
		}
	}
}

// Writes rows as csv, one column per "csv"-tagged struct field, with a
// header line built from the tags.
func WriteCSVToFile[T any](rows List[T], filename string, delimiter rune) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = delimiter

	var val T
	typ := reflect.TypeOf(val)
	header := NewList[string](typ.NumField())
	indices := NewList[int](typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("csv")
		if tag == "" {
			continue
		}
		header.Add(tag)
		indices.Add(i)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	record := NewArray[string](header.Length())
	for _, row := range rows {
		v := reflect.ValueOf(row)
		for i, index := range indices {
			f := v.Field(index)
			switch f.Kind() {
			case reflect.Bool:
				record[i] = strconv.FormatBool(f.Bool())
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				record[i] = strconv.FormatInt(f.Int(), 10)
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				record[i] = strconv.FormatUint(f.Uint(), 10)
			case reflect.Float32, reflect.Float64:
				record[i] = strconv.FormatFloat(f.Float(), 'g', -1, 64)
			case reflect.String:
				record[i] = f.String()
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func _TaggedFields(typ reflect.Type, columns Dict[string, int]) List[Triple[int, int, reflect.Kind]] {
	num_field := typ.NumField()
	fields := NewList[Triple[int, int, reflect.Kind]](num_field)
	for i := 0; i < num_field; i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("csv")
		if tag == "" {
			continue
		}
		if !columns.ContainsKey(tag) {
			continue
		}
		column := columns[tag]
		switch field.Type.Kind() {
		case reflect.Bool:
			fields.Add(MakeTriple(i, column, reflect.Bool))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fields.Add(MakeTriple(i, column, reflect.Int))
		case reflect.Float32, reflect.Float64:
			fields.Add(MakeTriple(i, column, reflect.Float64))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fields.Add(MakeTriple(i, column, reflect.Uint))
		case reflect.String:
			fields.Add(MakeTriple(i, column, reflect.String))
		}
	}
	return fields
}
