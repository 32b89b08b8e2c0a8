package tray

import "fyne.io/fyne/v2"

// SVG content for the tray icon
const SVGContent = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <!-- Selection rectangle -->
  <rect x="2" y="2" width="10" height="8" fill="none" stroke="#0078d4" stroke-width="1.5" stroke-dasharray="2,1"/>
  <!-- Text lines -->
  <line x1="4" y1="5" x2="10" y2="5" stroke="#333333" stroke-width="1"/>
  <line x1="4" y1="7.5" x2="8" y2="7.5" stroke="#333333" stroke-width="1"/>
  <!-- Key -->
  <rect x="9" y="10" width="6" height="5" rx="1" fill="#ffffff" stroke="#333333" stroke-width="0.8"/>
  <line x1="10.5" y1="12.5" x2="13.5" y2="12.5" stroke="#666666" stroke-width="0.8"/>
</svg>`

// Icon is the application and tray icon.
var Icon = fyne.NewStaticResource("screen-ocr-hotkey.svg", []byte(SVGContent))
