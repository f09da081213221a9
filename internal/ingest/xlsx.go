package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"strings"
)

// xlsx structures, limited to what text extraction needs.

type xlsxWorkbook struct {
	Sheets struct {
		Sheet []struct {
			Name string `xml:"name,attr"`
			RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"sheet"`
	} `xml:"sheets"`
}

type xlsxRels struct {
	Relationship []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxSharedStrings struct {
	SI []struct {
		T []string `xml:"t"`
		R []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type xlsxWorksheet struct {
	SheetData struct {
		Row []struct {
			C []xlsxCell `xml:"c"`
		} `xml:"row"`
	} `xml:"sheetData"`
}

type xlsxCell struct {
	R string `xml:"r,attr"`
	T string `xml:"t,attr"`
	V string `xml:"v"`
	IS struct {
		T string `xml:"t"`
	} `xml:"is"`
}

// extractXlsxText renders every non-blank worksheet as CSV, each prefixed
// with a sheet header line, in workbook order.
func extractXlsxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptOrEncrypted, err)
	}

	wbData, err := readZipEntry(zr, "xl/workbook.xml")
	if err != nil {
		return "", fmt.Errorf("%w: missing workbook", ErrCorruptOrEncrypted)
	}
	var wb xlsxWorkbook
	if err := xml.Unmarshal(wbData, &wb); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptOrEncrypted, err)
	}

	targets, err := sheetTargets(zr)
	if err != nil {
		return "", err
	}

	shared, err := sharedStrings(zr)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, sheet := range wb.Sheets.Sheet {
		target, ok := targets[sheet.RID]
		if !ok {
			continue
		}
		wsData, err := readZipEntry(zr, target)
		if err != nil {
			return "", fmt.Errorf("%w: missing worksheet %s", ErrCorruptOrEncrypted, sheet.Name)
		}

		rendered, err := renderSheetCSV(wsData, shared)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(rendered) == "" {
			continue
		}
		fmt.Fprintf(&sb, "--- 工作表: %s ---\n%s\n\n", sheet.Name, strings.TrimRight(rendered, "\n"))
	}

	return sb.String(), nil
}

// sheetTargets maps relationship ids to archive paths of worksheets.
func sheetTargets(zr *zip.Reader) (map[string]string, error) {
	relData, err := readZipEntry(zr, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, fmt.Errorf("%w: missing workbook relationships", ErrCorruptOrEncrypted)
	}
	var rels xlsxRels
	if err := xml.Unmarshal(relData, &rels); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptOrEncrypted, err)
	}

	targets := make(map[string]string, len(rels.Relationship))
	for _, rel := range rels.Relationship {
		target := strings.TrimPrefix(rel.Target, "/")
		if !strings.HasPrefix(target, "xl/") {
			target = "xl/" + target
		}
		targets[rel.ID] = target
	}
	return targets, nil
}

// sharedStrings loads the shared string table, if present.
func sharedStrings(zr *zip.Reader) ([]string, error) {
	ssData, err := readZipEntry(zr, "xl/sharedStrings.xml")
	if err != nil {
		return nil, nil // optional part
	}
	var sst xlsxSharedStrings
	if err := xml.Unmarshal(ssData, &sst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptOrEncrypted, err)
	}

	out := make([]string, len(sst.SI))
	for i, si := range sst.SI {
		var s strings.Builder
		for _, t := range si.T {
			s.WriteString(t)
		}
		for _, r := range si.R {
			s.WriteString(r.T)
		}
		out[i] = s.String()
	}
	return out, nil
}

// renderSheetCSV renders one worksheet as CSV, resolving shared strings
// and padding skipped columns.
func renderSheetCSV(wsData []byte, shared []string) (string, error) {
	var ws xlsxWorksheet
	if err := xml.Unmarshal(wsData, &ws); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptOrEncrypted, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range ws.SheetData.Row {
		var record []string
		for _, c := range row.C {
			col := columnIndex(c.R)
			for len(record) < col {
				record = append(record, "")
			}
			record = append(record, cellValue(c, shared))
		}
		if len(record) == 0 {
			continue
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("rendering sheet: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("rendering sheet: %w", err)
	}
	return buf.String(), nil
}

// cellValue resolves a cell's display value.
func cellValue(c xlsxCell, shared []string) string {
	switch c.T {
	case "s":
		var idx int
		if _, err := fmt.Sscanf(c.V, "%d", &idx); err == nil && idx >= 0 && idx < len(shared) {
			return shared[idx]
		}
		return ""
	case "inlineStr":
		return c.IS.T
	case "b":
		if c.V == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return c.V
	}
}

// columnIndex converts the column letters of a cell reference ("BC12") to
// a zero-based index.
func columnIndex(ref string) int {
	idx := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		idx = idx*26 + int(r-'A') + 1
	}
	if idx == 0 {
		return 0
	}
	return idx - 1
}
