package shader

// Attribute locations shared by both programs.
const (
	LocPosition = 0 // xyz in the orbit view, uv in the uv view
	LocNormal   = 1
	LocColor    = 2
)

// Fragment modes. The numbering follows mesh.ColorMode.
const (
	ModeNormals     = 0
	ModeObjectSpace = 1
	ModeUV          = 2
	ModeColors      = 3
	ModeMatcap      = 4
)

// OrbitVertex transforms model positions through the orbit camera and
// passes the matcap lookup from the view space normal.
const OrbitVertex = `
#version 410 core

uniform mat4 u_view;
uniform mat4 u_projection;
uniform float u_color_scale;
uniform vec3 u_color_offset;

layout (location = 0) in vec3 a_position;
layout (location = 1) in vec3 a_normal;
layout (location = 2) in vec3 a_color;

out vec3 v_color;
out vec2 v_matcap;

void main() {
	v_color = a_color * u_color_scale + u_color_offset;

	vec3 n = (u_view * vec4(a_normal, 0.0)).xyz;
	vec2 m = length(n) > 0.0 ? normalize(n).xy : vec2(0.0);
	v_matcap = (1.0 + m * vec2(1.0, -1.0)) * 0.5;

	gl_Position = u_projection * u_view * vec4(a_position, 1.0);
}
`

// UVVertex lays triangles out by their texture coordinates.
const UVVertex = `
#version 410 core

uniform float u_color_scale;
uniform vec3 u_color_offset;

layout (location = 0) in vec2 a_uv;
layout (location = 2) in vec3 a_color;

out vec3 v_color;
out vec2 v_matcap;

void main() {
	v_color = a_color * u_color_scale + u_color_offset;
	v_matcap = vec2(0.5);
	gl_Position = vec4(a_uv * 2.0 - 1.0, 0.0, 1.0);
}
`

// Fragment picks the final color by u_mode.
const Fragment = `
#version 410 core

uniform int u_mode;
uniform sampler2D u_matcap;

in vec3 v_color;
in vec2 v_matcap;

out vec4 frag_color;

void main() {
	vec3 col = v_color;
	if (u_mode == 2) {
		col = vec3(v_color.rg, 0.0);
	} else if (u_mode == 4) {
		col = texture(u_matcap, v_matcap).rgb;
	}
	frag_color = vec4(col, 1.0);
}
`
